package timeline

import (
	"testing"

	"MarketBaseline/internal/model"
)

const hour = 3600

// hourlyRecords builds n well-formed compact records starting at startTS.
func hourlyRecords(startTS int64, n int) [][]float64 {
	recs := make([][]float64, n)
	for i := 0; i < n; i++ {
		ts := float64(startTS + int64(i)*hour)
		recs[i] = []float64{ts, 100, 100.5, 99.5, 100, 10}
	}
	return recs
}

func TestBuild_FirstSeenWins(t *testing.T) {
	early := model.Snapshot{
		PublishedAt: "2025-01-01T00:00:00Z",
		SourceID:    "2025-01-01/00.json",
		Candles:     [][]float64{{7200, 100, 101, 99, 100, 10}},
	}
	late := model.Snapshot{
		PublishedAt: "2025-01-02T00:00:00Z",
		SourceID:    "2025-01-02/00.json",
		Candles:     [][]float64{{7200, 200, 201, 199, 200, 20}},
	}

	// Input order must not matter: the builder sorts by (PublishedAt, SourceID).
	tl := Build([]model.Snapshot{late, early})

	bar, ok := tl.Bar(7200)
	if !ok {
		t.Fatal("expected bar at 7200")
	}
	if bar.Close != 100 {
		t.Errorf("expected first-seen close 100, got %g", bar.Close)
	}
	if tl.Conflicts != 1 {
		t.Errorf("expected 1 conflict, got %d", tl.Conflicts)
	}
	if tl.Len() != 1 {
		t.Errorf("expected 1 bar, got %d", tl.Len())
	}
}

func TestBuild_IdenticalDuplicateIsNotAConflict(t *testing.T) {
	rec := []float64{7200, 100, 101, 99, 100, 10}
	a := model.Snapshot{PublishedAt: "a", SourceID: "a", Candles: [][]float64{rec}}
	b := model.Snapshot{PublishedAt: "b", SourceID: "b", Candles: [][]float64{rec}}

	tl := Build([]model.Snapshot{a, b})
	if tl.Conflicts != 0 {
		t.Errorf("expected 0 conflicts for identical bars, got %d", tl.Conflicts)
	}
}

func TestBuild_SkipsMalformedRecords(t *testing.T) {
	s := model.Snapshot{
		PublishedAt: "a",
		SourceID:    "a",
		Candles: [][]float64{
			{3600, 100, 101, 99, 100}, // 5 fields: malformed
			{7200, 100, 101, 99, 100, 10},
			nil, // empty record
		},
	}

	tl := Build([]model.Snapshot{s})
	if tl.Len() != 1 {
		t.Fatalf("expected 1 bar, got %d", tl.Len())
	}
	if tl.MalformedBars != 2 {
		t.Errorf("expected 2 malformed records, got %d", tl.MalformedBars)
	}
	if _, ok := tl.Bar(3600); ok {
		t.Error("malformed record must not enter the timeline")
	}
}

func TestForwardWindow_Complete(t *testing.T) {
	entry := int64(1000 * hour)
	s := model.Snapshot{PublishedAt: "a", SourceID: "a", Candles: hourlyRecords(entry+hour, 96)}
	tl := Build([]model.Snapshot{s})

	window, ok := tl.ForwardWindow(entry, 96)
	if !ok {
		t.Fatal("expected a complete 96h window")
	}
	if len(window) != 96 {
		t.Fatalf("expected 96 bars, got %d", len(window))
	}
	if window[0].Timestamp != entry+hour {
		t.Errorf("window must start one hour after entry, got %d", window[0].Timestamp)
	}
	if window[95].Timestamp != entry+96*hour {
		t.Errorf("window must end at entry+96h, got %d", window[95].Timestamp)
	}
}

func TestForwardWindow_SingleGapInvalidatesWindow(t *testing.T) {
	entry := int64(1000 * hour)
	recs := hourlyRecords(entry+hour, 96)
	// remove hour 55; hours 1-54 and 56-96 remain present
	recs = append(recs[:54], recs[55:]...)
	s := model.Snapshot{PublishedAt: "a", SourceID: "a", Candles: recs}
	tl := Build([]model.Snapshot{s})

	if _, ok := tl.ForwardWindow(entry, 96); ok {
		t.Fatal("a one-hour gap must invalidate the whole window")
	}
	// the shorter continuous prefix is still stitchable
	if _, ok := tl.ForwardWindow(entry, 54); !ok {
		t.Fatal("expected a complete 54h window before the gap")
	}
}
