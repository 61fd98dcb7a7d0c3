package timeline

import (
	"MarketBaseline/internal/model"
)

// Timeline is the deduplicated timestamp -> Bar mapping merged from every
// snapshot's candle records. It is rebuilt from scratch on each run and
// never persisted.
type Timeline struct {
	bars map[int64]model.Bar

	// MalformedBars counts candle records dropped for having too few fields.
	MalformedBars int
	// Conflicts counts duplicate timestamps whose retained and discarded
	// bars disagree on OHLCV values.
	Conflicts int
}

// Build merges the candle records of all snapshots into one timeline.
// Snapshots are processed in (PublishedAt, SourceID) order and the first
// bar seen for a timestamp wins; later duplicates are discarded, never
// overwritten. Sorting first makes the resolution deterministic regardless
// of how the snapshot set was produced.
func Build(snaps []model.Snapshot) *Timeline {
	ordered := make([]model.Snapshot, len(snaps))
	copy(ordered, snaps)
	model.SortSnapshots(ordered)

	t := &Timeline{bars: make(map[int64]model.Bar)}
	for _, s := range ordered {
		for _, rec := range s.Candles {
			bar, ok := model.BarFromRecord(rec)
			if !ok {
				t.MalformedBars++
				continue
			}
			if prev, dup := t.bars[bar.Timestamp]; dup {
				if prev != bar {
					t.Conflicts++
				}
				continue
			}
			t.bars[bar.Timestamp] = bar
		}
	}
	return t
}

// Len returns the number of distinct hourly bars in the timeline.
func (t *Timeline) Len() int { return len(t.bars) }

// Bar returns the bar at the given timestamp, if present.
func (t *Timeline) Bar(ts int64) (model.Bar, bool) {
	b, ok := t.bars[ts]
	return b, ok
}

// ForwardWindow returns the `hours` consecutive bars at entryTS + 3600*k for
// k = 1..hours. It is strictly all-or-nothing: a single missing hour
// anywhere in the window invalidates the whole window, because running
// extrema and first-hit search are defined only over an unbroken sequence.
func (t *Timeline) ForwardWindow(entryTS int64, hours int) ([]model.Bar, bool) {
	out := make([]model.Bar, 0, hours)
	for k := 1; k <= hours; k++ {
		bar, ok := t.bars[entryTS+3600*int64(k)]
		if !ok {
			return nil, false
		}
		out = append(out, bar)
	}
	return out, true
}
