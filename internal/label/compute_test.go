package label

import (
	"testing"

	"MarketBaseline/internal/model"
)

// scenarioWindow builds a 96-bar forward window around an entry close of
// 100: highs sit at 100.6 except hour 20 which spikes to 103, lows sit at
// 99.8 except hour 5 which dips to 99.0.
func scenarioWindow() []model.Bar {
	bars := make([]model.Bar, 96)
	for i := range bars {
		high, low := 100.6, 99.8
		if i+1 == 20 {
			high = 103
		}
		if i+1 == 5 {
			low = 99.0
		}
		bars[i] = model.Bar{
			Timestamp: int64(i+1) * 3600,
			Open:      100,
			High:      high,
			Low:       low,
			Close:     100.1,
			Volume:    10,
		}
	}
	return bars
}

func TestPctChange_ZeroBase(t *testing.T) {
	if got := PctChange(123, 0); got != 0 {
		t.Errorf("zero base must yield 0, got %g", got)
	}
}

func TestContinuous_KnownWindow(t *testing.T) {
	window := []model.Bar{
		{High: 101, Low: 99, Close: 100},
		{High: 102, Low: 98.5, Close: 99},
		{High: 101.5, Low: 99.5, Close: 100.5},
	}
	m := Continuous(100, window)

	if m.MaxUpPct != 2 {
		t.Errorf("max_up_pct: expected 2, got %g", m.MaxUpPct)
	}
	if m.MaxDownPct != -1.5 {
		t.Errorf("max_down_pct: expected -1.5, got %g", m.MaxDownPct)
	}
	if m.CloseChangePct != 0.5 {
		t.Errorf("close_change_pct: expected 0.5, got %g", m.CloseChangePct)
	}
	if m.RangePct != 3.5 {
		t.Errorf("range_pct: expected 3.5, got %g", m.RangePct)
	}
}

func TestContinuous_ZeroEntryClose(t *testing.T) {
	window := []model.Bar{{High: 101, Low: 99, Close: 100}}
	m := Continuous(0, window)
	if m.MaxUpPct != 0 || m.MaxDownPct != 0 || m.CloseChangePct != 0 || m.RangePct != 0 {
		t.Errorf("zero entry close must degenerate to all-zero metrics, got %+v", m)
	}
}

func TestHits_UpsideHitAndDrawdown(t *testing.T) {
	out := Hits(100, scenarioWindow(), []float64{0.5, 2, 5})

	// 2%: target 102 is first reached by the hour-20 spike to 103.
	m2 := out["2"]
	if !m2.TimeToHitUp.Valid || m2.TimeToHitUp.Int64 != 20 {
		t.Fatalf("t_hit_up_2: expected 20, got %+v", m2.TimeToHitUp)
	}
	// worst low over hours 1..20 is 99.0 -> -1%
	if !m2.MDDBeforeHitUp.Valid || m2.MDDBeforeHitUp.Float64 != -1 {
		t.Errorf("mdd_before_hit_up_2: expected -1, got %+v", m2.MDDBeforeHitUp)
	}

	// 0.5%: target 100.5 is reached in hour 1; only hour 1's low counts.
	m05 := out["0p5"]
	if !m05.TimeToHitUp.Valid || m05.TimeToHitUp.Int64 != 1 {
		t.Errorf("t_hit_up_0p5: expected 1, got %+v", m05.TimeToHitUp)
	}
	if !m05.MDDBeforeHitUp.Valid || m05.MDDBeforeHitUp.Float64 != -0.2 {
		t.Errorf("mdd_before_hit_up_0p5: expected -0.2, got %+v", m05.MDDBeforeHitUp)
	}
	// downside 0.5%: target 99.5 is first reached by the hour-5 dip.
	if !m05.TimeToHitDown.Valid || m05.TimeToHitDown.Int64 != 5 {
		t.Errorf("t_hit_down_0p5: expected 5, got %+v", m05.TimeToHitDown)
	}

	// 5%: never reached in either direction; all three absent.
	m5 := out["5"]
	if m5.TimeToHitUp.Valid || m5.TimeToHitDown.Valid || m5.MDDBeforeHitUp.Valid {
		t.Errorf("threshold 5: expected all-absent metrics, got %+v", m5)
	}
}

func TestHits_DrawdownClampedToZero(t *testing.T) {
	// Lows never fall below the entry close before the hit.
	bars := make([]model.Bar, 10)
	for i := range bars {
		high := 100.3
		if i+1 == 3 {
			high = 103
		}
		bars[i] = model.Bar{High: high, Low: 100.2, Close: 100.25}
	}

	out := Hits(100, bars, []float64{2})
	m := out["2"]
	if !m.TimeToHitUp.Valid || m.TimeToHitUp.Int64 != 3 {
		t.Fatalf("t_hit_up_2: expected 3, got %+v", m.TimeToHitUp)
	}
	if !m.MDDBeforeHitUp.Valid {
		t.Fatal("drawdown must be present when the upside hit exists")
	}
	if m.MDDBeforeHitUp.Float64 != 0 {
		t.Errorf("drawdown must clamp to exactly 0, got %g", m.MDDBeforeHitUp.Float64)
	}
}

func TestBuildRow_HorizonMonotonicity(t *testing.T) {
	horizons := []int{12, 24, 36, 48, 60, 72, 84, 96}
	snap := model.Snapshot{PublishedAt: "2025-01-01T00:00:00Z", SourceID: "2025-01-01/00.json"}
	row := BuildRow(snap, 0, 100, scenarioWindow(), horizons, []float64{0.5, 2})

	if len(row.Horizons) != len(horizons) {
		t.Fatalf("expected %d horizon entries, got %d", len(horizons), len(row.Horizons))
	}
	for i := 1; i < len(horizons); i++ {
		prev, cur := row.Horizons[horizons[i-1]], row.Horizons[horizons[i]]
		if cur.MaxUpPct < prev.MaxUpPct {
			t.Errorf("max_up_pct shrank from horizon %d to %d: %g -> %g",
				horizons[i-1], horizons[i], prev.MaxUpPct, cur.MaxUpPct)
		}
		if cur.RangePct < prev.RangePct {
			t.Errorf("range_pct shrank from horizon %d to %d: %g -> %g",
				horizons[i-1], horizons[i], prev.RangePct, cur.RangePct)
		}
	}
}

func TestResolveEntry(t *testing.T) {
	tests := []struct {
		name      string
		candles   [][]float64
		wantOK    bool
		wantTS    int64
		wantClose float64
	}{
		{name: "empty", candles: nil, wantOK: false},
		{name: "short last record", candles: [][]float64{{3600, 1, 2, 3}}, wantOK: false},
		{name: "ok", candles: [][]float64{
			{3600, 1, 2, 0.5, 1.5, 10},
			{7200, 1.5, 2.5, 1, 2, 12},
		}, wantOK: true, wantTS: 7200, wantClose: 2},
		{name: "five fields is enough", candles: [][]float64{{7200, 1, 2, 0.5, 1.5}}, wantOK: true, wantTS: 7200, wantClose: 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, close, ok := ResolveEntry(model.Snapshot{Candles: tt.candles})
			if ok != tt.wantOK {
				t.Fatalf("ok: expected %v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if ts != tt.wantTS || close != tt.wantClose {
				t.Errorf("expected (%d, %g), got (%d, %g)", tt.wantTS, tt.wantClose, ts, close)
			}
		})
	}
}
