package pipeline

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"MarketBaseline/internal/config"
	"MarketBaseline/internal/label"
	"MarketBaseline/internal/ledger"
	"MarketBaseline/internal/model"
	"MarketBaseline/internal/timeline"
)

// Source supplies the ordered snapshot set for a run. The filesystem store
// is the production implementation; tests use in-memory sources.
type Source interface {
	LatestSnapshots() ([]model.Snapshot, error)
}

// Pipeline runs one full label pass: timeline build, per-snapshot entry
// resolution, forward-window stitching, label computation, ledger append.
type Pipeline struct {
	source Source
	ledger ledger.Ledger
	cfg    *config.Config
}

// Result tallies the outcome of one run. Malformed units and alignment
// gaps are counted separately: the former signals a formatting problem,
// the latter a data-coverage problem.
type Result struct {
	RunID             string
	SnapshotsSeen     int
	Added             int
	SkippedDuplicate  int
	SkippedMalformed  int // snapshots without a resolvable entry point
	SkippedGap        int // snapshots whose forward window cannot be stitched
	TimelineBars      int
	TimelineConflicts int
	MalformedBars     int
}

// New creates a Pipeline over the given source and ledger.
func New(src Source, led ledger.Ledger, cfg *config.Config) *Pipeline {
	return &Pipeline{source: src, ledger: led, cfg: cfg}
}

// Run executes one full pass. Only total absence of usable input is fatal;
// per-unit failures are tallied and never abort the run. A row is either
// fully computed and appended, or not appended at all. Re-running over an
// unchanged snapshot set appends zero rows.
func (p *Pipeline) Run() (*Result, error) {
	res := &Result{RunID: uuid.NewString()}

	snaps, err := p.source.LatestSnapshots()
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, errors.New("no snapshots found in history archive")
	}

	tl := timeline.Build(snaps)
	if tl.Len() == 0 {
		return nil, errors.New("no usable candles in history snapshots")
	}
	res.TimelineBars = tl.Len()
	res.TimelineConflicts = tl.Conflicts
	res.MalformedBars = tl.MalformedBars
	if tl.Conflicts > 0 {
		log.Printf("[WARN] timeline: %d duplicate timestamps with conflicting bars (first seen kept)", tl.Conflicts)
	}

	// Existing keys are read once per run, before any append; the dedup
	// guarantee still holds per row because every append updates the set.
	keys, err := p.ledger.Keys()
	if err != nil {
		return nil, fmt.Errorf("read ledger keys: %w", err)
	}

	ordered := make([]model.Snapshot, len(snaps))
	copy(ordered, snaps)
	model.SortSnapshots(ordered)

	maxH := p.cfg.MaxHorizon()
	for _, s := range ordered {
		res.SnapshotsSeen++

		if _, dup := keys[model.LabelKey{PublishedAt: s.PublishedAt, SourceID: s.SourceID}]; dup {
			res.SkippedDuplicate++
			continue
		}

		entryTS, entryClose, ok := label.ResolveEntry(s)
		if !ok {
			res.SkippedMalformed++
			continue
		}

		window, ok := tl.ForwardWindow(entryTS, maxH)
		if !ok {
			res.SkippedGap++
			continue
		}

		row := label.BuildRow(s, entryTS, entryClose, window, p.cfg.Horizons, p.cfg.Thresholds)
		if err := p.ledger.Append(row); err != nil {
			return res, fmt.Errorf("append label row %s: %w", s.SourceID, err)
		}
		keys[row.Key()] = struct{}{}
		res.Added++
	}

	log.Printf("[INFO] labels run %s: added=%d duplicates=%d malformed=%d gaps=%d timeline_bars=%d",
		res.RunID, res.Added, res.SkippedDuplicate, res.SkippedMalformed, res.SkippedGap, res.TimelineBars)
	return res, nil
}
