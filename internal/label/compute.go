package label

import (
	"math"

	"github.com/guregu/null/v6"

	"MarketBaseline/internal/model"
)

// storedPrecision is the decimal precision of persisted percentage values.
const storedPrecision = 4

// PctChange returns the percent change from base to next. A zero base is a
// defined 0 percent change, never a division error.
func PctChange(next, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (next - base) / base * 100
}

func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

// Continuous computes the continuous outcome metrics over one forward
// window (the first h bars of the maximum-horizon window for horizon h).
// The window must not be empty.
func Continuous(entryClose float64, window []model.Bar) model.HorizonMetrics {
	maxHigh := math.Inf(-1)
	minLow := math.Inf(1)
	for _, b := range window {
		if b.High > maxHigh {
			maxHigh = b.High
		}
		if b.Low < minLow {
			minLow = b.Low
		}
	}
	endClose := window[len(window)-1].Close

	rangePct := 0.0
	if entryClose != 0 {
		rangePct = (maxHigh - minLow) / entryClose * 100
	}

	return model.HorizonMetrics{
		MaxUpPct:       round(PctChange(maxHigh, entryClose), storedPrecision),
		MaxDownPct:     round(PctChange(minLow, entryClose), storedPrecision),
		CloseChangePct: round(PctChange(endClose, entryClose), storedPrecision),
		RangePct:       round(rangePct, storedPrecision),
	}
}

// Hits computes, for each threshold, the earliest hour the upside and
// downside targets are reached within the full maximum-horizon window, and
// the maximum drawdown seen before the first upside hit. Hours are
// 1-indexed. The scan runs over running-max-of-highs and running-min-of-lows
// prefix sequences built once per window.
//
// The drawdown invariant (<= 0) is enforced here, at the point of
// computation: a value that comes out slightly positive through rounding is
// forced to exactly 0. When the upside target is never reached the drawdown
// is absent, not zero.
func Hits(entryClose float64, window []model.Bar, thresholds []float64) map[string]model.ThresholdMetrics {
	runMax := make([]float64, len(window))
	runMin := make([]float64, len(window))
	curMax := math.Inf(-1)
	curMin := math.Inf(1)
	for i, b := range window {
		if b.High > curMax {
			curMax = b.High
		}
		if b.Low < curMin {
			curMin = b.Low
		}
		runMax[i] = curMax
		runMin[i] = curMin
	}

	out := make(map[string]model.ThresholdMetrics, len(thresholds))
	for _, thr := range thresholds {
		var m model.ThresholdMetrics

		targetUp := entryClose * (1 + thr/100)
		for i, h := range runMax {
			if h >= targetUp {
				m.TimeToHitUp = null.IntFrom(int64(i + 1))
				break
			}
		}

		targetDown := entryClose * (1 - thr/100)
		for i, l := range runMin {
			if l <= targetDown {
				m.TimeToHitDown = null.IntFrom(int64(i + 1))
				break
			}
		}

		if m.TimeToHitUp.Valid {
			// The running min at the hit hour is the minimum low over
			// hours 1..tau, since the prefix minimum never increases.
			tau := int(m.TimeToHitUp.Int64)
			mdd := round(PctChange(runMin[tau-1], entryClose), storedPrecision)
			if mdd > 0 {
				mdd = 0
			}
			m.MDDBeforeHitUp = null.FloatFrom(mdd)
		}

		out[model.ThresholdKey(thr)] = m
	}
	return out
}

// BuildRow computes the full label row for one snapshot from its resolved
// entry point and its stitched maximum-horizon forward window. Each
// configured horizon must be at most len(window); the widest horizon equals
// the window length.
func BuildRow(snap model.Snapshot, entryTS int64, entryClose float64, window []model.Bar, horizons []int, thresholds []float64) *model.LabelRow {
	row := &model.LabelRow{
		PublishedAt: snap.PublishedAt,
		SourceID:    snap.SourceID,
		EntryTS:     entryTS,
		EntryClose:  entryClose,
		Horizons:    make(map[int]model.HorizonMetrics, len(horizons)),
		Thresholds:  Hits(entryClose, window, thresholds),
	}
	for _, h := range horizons {
		row.Horizons[h] = Continuous(entryClose, window[:h])
	}
	return row
}
