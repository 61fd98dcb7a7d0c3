package validate

import (
	"fmt"
	"log"
	"math"

	"MarketBaseline/internal/baseline"
	"MarketBaseline/internal/model"
)

// RowReport is the post-hoc consistency report over the label ledger.
// Violations are reported as warnings and never auto-corrected here.
type RowReport struct {
	RowCount int

	MonotonicChecked  int
	MaxUpViolations   []string // PublishedAt of offending rows
	RangeViolations   []string
	CoherenceChecked  int
	CoherenceViolated int
	DrawdownChecked   map[string]int
	DrawdownViolated  map[string]int
	Maturity          map[int]int // rows carrying metrics per horizon
}

// OK reports whether every check passed.
func (r *RowReport) OK() bool {
	if len(r.MaxUpViolations) > 0 || len(r.RangeViolations) > 0 || r.CoherenceViolated > 0 {
		return false
	}
	for _, n := range r.DrawdownViolated {
		if n > 0 {
			return false
		}
	}
	return true
}

// CheckRows runs all per-row sanity checks: horizon monotonicity of
// max_up_pct and range_pct (a wider window cannot shrink an extremum),
// time-to-hit coherence for the smallest threshold, drawdown sign, and
// label maturity counts.
func CheckRows(rows []*model.LabelRow, horizons []int, thresholds []float64) *RowReport {
	rep := &RowReport{
		RowCount:         len(rows),
		DrawdownChecked:  make(map[string]int, len(thresholds)),
		DrawdownViolated: make(map[string]int, len(thresholds)),
		Maturity:         make(map[int]int, len(horizons)),
	}

	maxH := 0
	if len(horizons) > 0 {
		maxH = horizons[len(horizons)-1]
	}

	for _, row := range rows {
		// Maturity: which horizons this row actually carries.
		for _, h := range horizons {
			if _, ok := row.Horizons[h]; ok {
				rep.Maturity[h]++
			}
		}

		// Monotonicity across ascending horizons.
		upVals, rangeVals, complete := horizonSeries(row, horizons)
		if complete {
			rep.MonotonicChecked++
			if !nonDecreasing(upVals) {
				rep.MaxUpViolations = append(rep.MaxUpViolations, row.PublishedAt)
			}
			if !nonDecreasing(rangeVals) {
				rep.RangeViolations = append(rep.RangeViolations, row.PublishedAt)
			}
		}

		// Time-to-hit coherence for the smallest threshold: the hit hour
		// must fall inside the window, and the bucketing horizon's max_up
		// must have actually reached the threshold.
		if len(thresholds) > 0 {
			thr := thresholds[0]
			if m, ok := row.Thresholds[model.ThresholdKey(thr)]; ok && m.TimeToHitUp.Valid {
				rep.CoherenceChecked++
				t := m.TimeToHitUp.Int64
				if t < 1 || t > int64(maxH) {
					rep.CoherenceViolated++
				} else if bucket, ok := bucketFor(int(t), horizons); ok {
					if hm, ok := row.Horizons[bucket]; !ok || hm.MaxUpPct < thr {
						rep.CoherenceViolated++
					}
				}
			}
		}

		// Drawdown sign: must be <= 0 whenever present.
		for _, thr := range thresholds {
			k := model.ThresholdKey(thr)
			m, ok := row.Thresholds[k]
			if !ok || !m.MDDBeforeHitUp.Valid {
				continue
			}
			rep.DrawdownChecked[k]++
			if m.MDDBeforeHitUp.Float64 > 0 {
				rep.DrawdownViolated[k]++
			}
		}
	}
	return rep
}

// CheckBaseline runs sanity checks over an aggregated summary: probability
// bounds, count consistency, and p_hit non-decreasing in horizon for a
// fixed threshold (a hit within a shorter horizon remains a hit within any
// longer one).
func CheckBaseline(s *baseline.Summary) []string {
	var warnings []string

	for _, thr := range s.Thresholds {
		prev := math.Inf(-1)
		for _, h := range s.Horizons {
			stat, ok := s.Lookup(thr, h)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("missing pair threshold=%g horizon=%d", thr, h))
				continue
			}
			if stat.NTotal < 0 || stat.NHit < 0 || stat.NHit > stat.NTotal {
				warnings = append(warnings, fmt.Sprintf("bad counts threshold=%g horizon=%d: n_hit=%d n_total=%d",
					thr, h, stat.NHit, stat.NTotal))
			}
			if stat.PHit < -1e-9 || stat.PHit > 1+1e-9 {
				warnings = append(warnings, fmt.Sprintf("p_hit out of range threshold=%g horizon=%d: %g", thr, h, stat.PHit))
			}
			expected := 0.0
			if stat.NTotal > 0 {
				expected = float64(stat.NHit) / float64(stat.NTotal)
			}
			if math.Abs(stat.PHit-expected) > 1e-5 {
				warnings = append(warnings, fmt.Sprintf("p_hit inconsistent threshold=%g horizon=%d: %g vs %g",
					thr, h, stat.PHit, expected))
			}
			if stat.PHit+1e-9 < prev {
				warnings = append(warnings, fmt.Sprintf("p_hit decreased threshold=%g horizon=%d: %g < %g",
					thr, h, stat.PHit, prev))
			}
			prev = stat.PHit
		}
	}
	return warnings
}

// Log prints the report in a fixed layout.
func (r *RowReport) Log() {
	log.Printf("[INFO] validation: rows=%d", r.RowCount)
	log.Printf("[INFO] monotonicity: checked=%d max_up_violations=%d range_violations=%d",
		r.MonotonicChecked, len(r.MaxUpViolations), len(r.RangeViolations))
	log.Printf("[INFO] hit coherence: checked=%d violations=%d", r.CoherenceChecked, r.CoherenceViolated)
	for k, n := range r.DrawdownChecked {
		log.Printf("[INFO] drawdown sign %s: checked=%d violations=%d", k, n, r.DrawdownViolated[k])
	}
	for _, kv := range sortedMaturity(r.Maturity) {
		log.Printf("[INFO] maturity %dh: %d", kv.h, kv.n)
	}
	if r.OK() {
		log.Println("[INFO] validation status: OK")
	} else {
		log.Println("[WARN] validation status: review violations above")
	}
}

func horizonSeries(row *model.LabelRow, horizons []int) (up, rng []float64, complete bool) {
	for _, h := range horizons {
		m, ok := row.Horizons[h]
		if !ok {
			return nil, nil, false
		}
		up = append(up, m.MaxUpPct)
		rng = append(rng, m.RangePct)
	}
	return up, rng, true
}

func nonDecreasing(vals []float64) bool {
	for i := 1; i < len(vals); i++ {
		if vals[i] < vals[i-1] {
			return false
		}
	}
	return true
}

// bucketFor returns the smallest configured horizon that contains hour t.
func bucketFor(t int, horizons []int) (int, bool) {
	for _, h := range horizons {
		if t <= h {
			return h, true
		}
	}
	return 0, false
}

type maturityEntry struct{ h, n int }

func sortedMaturity(m map[int]int) []maturityEntry {
	out := make([]maturityEntry, 0, len(m))
	for h, n := range m {
		out = append(out, maturityEntry{h, n})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].h > out[j].h; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
