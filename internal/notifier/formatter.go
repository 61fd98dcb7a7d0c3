package notifier

import (
	"fmt"
	"strings"
	"time"

	"MarketBaseline/internal/baseline"
	"MarketBaseline/internal/pipeline"
)

// FormatRunReport formats one labels-run outcome into a Telegram message.
func FormatRunReport(res *pipeline.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketBaseline run</b> | %s\n\n", time.Now().UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("snapshots: %d\n", res.SnapshotsSeen))
	b.WriteString(fmt.Sprintf("rows added: %d\n", res.Added))
	b.WriteString(fmt.Sprintf("duplicates: %d | malformed: %d | gaps: %d\n", res.SkippedDuplicate, res.SkippedMalformed, res.SkippedGap))
	b.WriteString(fmt.Sprintf("timeline: %d bars", res.TimelineBars))
	if res.TimelineConflicts > 0 {
		b.WriteString(fmt.Sprintf(" ⚠️ %d conflicting duplicates", res.TimelineConflicts))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatBaselineReport formats the aggregated hit-probability table.
// One line per threshold, p_hit across all horizons.
func FormatBaselineReport(s *baseline.Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>Baseline</b> | %d label rows\n\n", s.NRowsLabels))
	header := "thr"
	for _, h := range s.Horizons {
		header += fmt.Sprintf(" | %dh", h)
	}
	b.WriteString(header + "\n")
	for _, thr := range s.Thresholds {
		line := fmt.Sprintf("+%g%%", thr)
		for _, h := range s.Horizons {
			stat, ok := s.Lookup(thr, h)
			if !ok || stat.NTotal == 0 {
				line += " | –"
				continue
			}
			line += fmt.Sprintf(" | %.0f%%", stat.PHit*100)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatRunError formats a failed run for notification.
func FormatRunError(stage string, err error) string {
	return fmt.Sprintf("❌ <b>MarketBaseline %s failed</b>\n\n%v", stage, err)
}
