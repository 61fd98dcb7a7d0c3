package ledger

import (
	"fmt"
	"strconv"

	"github.com/guregu/null/v6"

	"MarketBaseline/internal/model"
)

// Ledger is the append-only, key-deduplicated store of label rows, the
// engine's durable state. Keys are read once per run, before any append, so
// the dedup guarantee holds as if checked per row without re-reading the
// store. Rows are immutable once appended; a duplicate append is a skip,
// not an error.
type Ledger interface {
	Keys() (map[model.LabelKey]struct{}, error)
	Append(row *model.LabelRow) error
	Rows() ([]*model.LabelRow, error)
	Close() error
}

// Header returns the column order shared by both ledger implementations:
// key columns first, then per-horizon continuous metrics, then
// per-threshold hit metrics.
func Header(horizons []int, thresholds []float64) []string {
	cols := []string{"published_at", "source_id", "entry_ts", "entry_close"}
	for _, h := range horizons {
		cols = append(cols,
			fmt.Sprintf("max_up_pct_%d", h),
			fmt.Sprintf("max_down_pct_%d", h),
			fmt.Sprintf("close_change_pct_%d", h),
			fmt.Sprintf("range_pct_%d", h),
		)
	}
	for _, thr := range thresholds {
		k := model.ThresholdKey(thr)
		cols = append(cols,
			"t_hit_up_"+k,
			"t_hit_down_"+k,
			"mdd_before_hit_up_"+k,
		)
	}
	return cols
}

// encodeRow flattens a label row into the Header column order. Absent
// values become empty fields, never "0".
func encodeRow(row *model.LabelRow, horizons []int, thresholds []float64) []string {
	out := []string{
		row.PublishedAt,
		row.SourceID,
		strconv.FormatInt(row.EntryTS, 10),
		formatFloat(row.EntryClose),
	}
	for _, h := range horizons {
		m := row.Horizons[h]
		out = append(out,
			formatFloat(m.MaxUpPct),
			formatFloat(m.MaxDownPct),
			formatFloat(m.CloseChangePct),
			formatFloat(m.RangePct),
		)
	}
	for _, thr := range thresholds {
		m := row.Thresholds[model.ThresholdKey(thr)]
		out = append(out,
			formatNullInt(m.TimeToHitUp),
			formatNullInt(m.TimeToHitDown),
			formatNullFloat(m.MDDBeforeHitUp),
		)
	}
	return out
}

// decodeRow rebuilds a label row from a stored record. Horizon and
// threshold entries are only populated when their columns exist in the
// stored header, so a row written under a narrower configuration is
// readable and simply lacks those entries.
func decodeRow(colIdx map[string]int, record []string, horizons []int, thresholds []float64) (*model.LabelRow, error) {
	field := func(name string) (string, bool) {
		i, ok := colIdx[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	publishedAt, ok := field("published_at")
	if !ok {
		return nil, fmt.Errorf("missing published_at column")
	}
	sourceID, ok := field("source_id")
	if !ok {
		return nil, fmt.Errorf("missing source_id column")
	}
	rawTS, _ := field("entry_ts")
	entryTS, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse entry_ts %q: %w", rawTS, err)
	}
	rawClose, _ := field("entry_close")
	entryClose, err := strconv.ParseFloat(rawClose, 64)
	if err != nil {
		return nil, fmt.Errorf("parse entry_close %q: %w", rawClose, err)
	}

	row := &model.LabelRow{
		PublishedAt: publishedAt,
		SourceID:    sourceID,
		EntryTS:     entryTS,
		EntryClose:  entryClose,
		Horizons:    make(map[int]model.HorizonMetrics, len(horizons)),
		Thresholds:  make(map[string]model.ThresholdMetrics, len(thresholds)),
	}

	for _, h := range horizons {
		up, okUp := field(fmt.Sprintf("max_up_pct_%d", h))
		down, okDown := field(fmt.Sprintf("max_down_pct_%d", h))
		cc, okCC := field(fmt.Sprintf("close_change_pct_%d", h))
		rg, okRg := field(fmt.Sprintf("range_pct_%d", h))
		if !okUp || !okDown || !okCC || !okRg {
			continue
		}
		row.Horizons[h] = model.HorizonMetrics{
			MaxUpPct:       parseFloatOrZero(up),
			MaxDownPct:     parseFloatOrZero(down),
			CloseChangePct: parseFloatOrZero(cc),
			RangePct:       parseFloatOrZero(rg),
		}
	}

	for _, thr := range thresholds {
		k := model.ThresholdKey(thr)
		hitUp, okUp := field("t_hit_up_" + k)
		hitDown, okDown := field("t_hit_down_" + k)
		mdd, okMDD := field("mdd_before_hit_up_" + k)
		if !okUp && !okDown && !okMDD {
			// row predates this threshold entirely
			continue
		}
		row.Thresholds[k] = model.ThresholdMetrics{
			TimeToHitUp:    parseNullInt(hitUp),
			TimeToHitDown:  parseNullInt(hitDown),
			MDDBeforeHitUp: parseNullFloat(mdd),
		}
	}

	return row, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNullInt(v null.Int) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func formatNullFloat(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseNullInt(s string) null.Int {
	if s == "" {
		return null.Int{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// tolerate values written as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return null.Int{}
		}
		n = int64(f)
	}
	return null.IntFrom(n)
}

func parseNullFloat(s string) null.Float {
	if s == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
