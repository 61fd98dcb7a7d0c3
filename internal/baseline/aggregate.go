package baseline

import (
	"math"
	"sort"
	"strconv"

	"github.com/guregu/null/v6"

	"MarketBaseline/internal/model"
)

// SchemaTag identifies the baseline summary schema version.
const SchemaTag = "baseline_probs_v1"

// Stat is the empirical baseline for one (threshold, horizon) pair: how
// often the upside target was hit within the horizon, and order statistics
// of hit time and drawdown-before-hit among the hits.
type Stat struct {
	Threshold float64 `json:"-"`
	Horizon   int     `json:"-"`

	NTotal int     `json:"n_total"`
	NHit   int     `json:"n_hit"`
	PHit   float64 `json:"p_hit"`

	HitTimeP25    null.Float `json:"t_hit_p25"`
	HitTimeMedian null.Float `json:"t_hit_median"`
	HitTimeP75    null.Float `json:"t_hit_p75"`

	MDDP25    null.Float `json:"mdd_p25"`
	MDDMedian null.Float `json:"mdd_median"`
	MDDP75    null.Float `json:"mdd_p75"`
}

// Summary is the full baseline, recomputed from the ledger on every
// aggregation run and never persisted incrementally. Results are keyed by
// threshold then horizon, both as decimal strings.
type Summary struct {
	Schema       string                      `json:"schema"`
	SourceLabels string                      `json:"source_labels"`
	NRowsLabels  int                         `json:"n_rows_labels"`
	Thresholds   []float64                   `json:"thresholds"`
	Horizons     []int                       `json:"horizons"`
	Results      map[string]map[string]*Stat `json:"results"`
}

// Aggregate scans every label row once per (threshold, horizon) pair. A row
// counts toward NTotal when it carries the threshold's columns at all; it
// counts as a hit when its upside hit time is present and within the
// horizon. Drawdowns are clamped to <= 0 here as well, so a ledger written
// before the sign fix still aggregates correctly.
func Aggregate(rows []*model.LabelRow, thresholds []float64, horizons []int, sourceRef string) *Summary {
	s := &Summary{
		Schema:       SchemaTag,
		SourceLabels: sourceRef,
		NRowsLabels:  len(rows),
		Thresholds:   thresholds,
		Horizons:     horizons,
		Results:      make(map[string]map[string]*Stat, len(thresholds)),
	}

	for _, thr := range thresholds {
		key := model.ThresholdKey(thr)
		byHorizon := make(map[string]*Stat, len(horizons))

		for _, h := range horizons {
			stat := &Stat{Threshold: thr, Horizon: h}
			var hitTimes, hitMDDs []float64

			for _, r := range rows {
				m, ok := r.Thresholds[key]
				if !ok {
					// row lacks this threshold's columns entirely
					continue
				}
				stat.NTotal++

				if m.TimeToHitUp.Valid && m.TimeToHitUp.Int64 <= int64(h) {
					stat.NHit++
					hitTimes = append(hitTimes, float64(m.TimeToHitUp.Int64))
					if m.MDDBeforeHitUp.Valid {
						hitMDDs = append(hitMDDs, math.Min(0, m.MDDBeforeHitUp.Float64))
					}
				}
			}

			if stat.NTotal > 0 {
				stat.PHit = round(float64(stat.NHit)/float64(stat.NTotal), 6)
			}

			sort.Float64s(hitTimes)
			stat.HitTimeP25 = roundNull(Quantile(hitTimes, 0.25), 4)
			stat.HitTimeMedian = roundNull(Quantile(hitTimes, 0.50), 4)
			stat.HitTimeP75 = roundNull(Quantile(hitTimes, 0.75), 4)

			sort.Float64s(hitMDDs)
			stat.MDDP25 = roundNull(Quantile(hitMDDs, 0.25), 6)
			stat.MDDMedian = roundNull(Quantile(hitMDDs, 0.50), 6)
			stat.MDDP75 = roundNull(Quantile(hitMDDs, 0.75), 6)

			byHorizon[strconv.Itoa(h)] = stat
		}

		s.Results[formatThreshold(thr)] = byHorizon
	}
	return s
}

// Lookup returns the stat for an exact (threshold, horizon) pair. This is
// the interface the downstream forecast consumes to attach a probability to
// a live, not-yet-resolved decision point.
func (s *Summary) Lookup(threshold float64, horizon int) (*Stat, bool) {
	byHorizon, ok := s.Results[formatThreshold(threshold)]
	if !ok {
		return nil, false
	}
	stat, ok := byHorizon[strconv.Itoa(horizon)]
	return stat, ok
}

func formatThreshold(thr float64) string {
	return strconv.FormatFloat(thr, 'f', -1, 64)
}

func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

func roundNull(v null.Float, places int) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(round(v.Float64, places))
}
