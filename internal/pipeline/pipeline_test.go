package pipeline

import (
	"path/filepath"
	"testing"

	"MarketBaseline/internal/config"
	"MarketBaseline/internal/ledger"
	"MarketBaseline/internal/model"
)

const hour = 3600

type fakeSource struct {
	snaps []model.Snapshot
}

func (f *fakeSource) LatestSnapshots() ([]model.Snapshot, error) { return f.snaps, nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Horizons = []int{12, 24}
	cfg.Thresholds = []float64{1}
	return cfg
}

func records(startTS int64, n int) [][]float64 {
	recs := make([][]float64, n)
	for i := 0; i < n; i++ {
		ts := float64(startTS + int64(i)*hour)
		recs[i] = []float64{ts, 100, 102, 99, 100, 10}
	}
	return recs
}

// twoSnapshots builds an archive where snapshot A's 24h forward window is
// fully covered by snapshot B's candles, while B itself has no forward
// coverage at all.
func twoSnapshots(entryA int64) []model.Snapshot {
	return []model.Snapshot{
		{
			PublishedAt: "2025-01-01T00:00:00Z",
			SourceID:    "2025-01-01/00.json",
			Candles:     records(entryA-2*hour, 3), // ends at entryA
		},
		{
			PublishedAt: "2025-01-02T00:00:00Z",
			SourceID:    "2025-01-02/00.json",
			Candles:     records(entryA+hour, 24), // entryA+1h .. entryA+24h
		},
	}
}

func newTestLedger(t *testing.T, cfg *config.Config) ledger.Ledger {
	t.Helper()
	led, err := ledger.NewCSVLedger(filepath.Join(t.TempDir(), "labels.csv"), cfg.Horizons, cfg.Thresholds)
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return led
}

func TestRun_EndToEndAndIdempotent(t *testing.T) {
	cfg := testConfig()
	led := newTestLedger(t, cfg)
	src := &fakeSource{snaps: twoSnapshots(1000 * hour)}
	p := New(src, led, cfg)

	res, err := p.Run()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 row added, got %d", res.Added)
	}
	if res.SkippedGap != 1 {
		t.Errorf("expected 1 gap skip (snapshot B has no forward coverage), got %d", res.SkippedGap)
	}
	if res.SkippedDuplicate != 0 || res.SkippedMalformed != 0 {
		t.Errorf("unexpected skips: %+v", res)
	}

	rows, err := led.Rows()
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	row := rows[0]
	if row.EntryTS != 1000*hour || row.EntryClose != 100 {
		t.Errorf("unexpected entry point: ts=%d close=%g", row.EntryTS, row.EntryClose)
	}
	// highs of 102 against an entry close of 100 hit the 1% target in hour 1
	m := row.Thresholds["1"]
	if !m.TimeToHitUp.Valid || m.TimeToHitUp.Int64 != 1 {
		t.Errorf("expected t_hit_up_1 = 1, got %+v", m.TimeToHitUp)
	}

	// second run over the unchanged snapshot set appends nothing
	res2, err := p.Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res2.Added != 0 {
		t.Errorf("second run must add zero rows, got %d", res2.Added)
	}
	if res2.SkippedDuplicate != 1 {
		t.Errorf("expected 1 duplicate skip on second run, got %d", res2.SkippedDuplicate)
	}
	rows, _ = led.Rows()
	if len(rows) != 1 {
		t.Errorf("ledger must be unchanged after second run, got %d rows", len(rows))
	}
}

func TestRun_GapSkipsWholeRow(t *testing.T) {
	cfg := testConfig()
	led := newTestLedger(t, cfg)

	entryA := int64(1000 * hour)
	snaps := twoSnapshots(entryA)
	// remove hour 13 from snapshot B: hours 1-12 and 14-24 remain
	snaps[1].Candles = append(snaps[1].Candles[:12], snaps[1].Candles[13:]...)

	res, err := New(&fakeSource{snaps: snaps}, led, cfg).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Added != 0 {
		t.Errorf("a one-hour gap must skip the whole row, got %d added", res.Added)
	}
	if res.SkippedGap != 2 {
		t.Errorf("expected 2 gap skips, got %d", res.SkippedGap)
	}
}

func TestRun_MalformedEntrySkipsSnapshot(t *testing.T) {
	cfg := testConfig()
	led := newTestLedger(t, cfg)

	snaps := twoSnapshots(1000 * hour)
	snaps = append(snaps, model.Snapshot{
		PublishedAt: "2025-01-03T00:00:00Z",
		SourceID:    "2025-01-03/00.json",
		Candles:     [][]float64{{float64(999 * hour), 100, 101, 99}}, // 4 fields
	})

	res, err := New(&fakeSource{snaps: snaps}, led, cfg).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.SkippedMalformed != 1 {
		t.Errorf("expected 1 malformed skip, got %d", res.SkippedMalformed)
	}
	if res.Added != 1 {
		t.Errorf("malformed snapshot must not block the others, got %d added", res.Added)
	}
}

func TestRun_NoSnapshotsIsFatal(t *testing.T) {
	cfg := testConfig()
	led := newTestLedger(t, cfg)

	if _, err := New(&fakeSource{}, led, cfg).Run(); err == nil {
		t.Fatal("expected an error for an empty snapshot set")
	}
}
