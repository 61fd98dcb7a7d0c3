package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

// HorizonMetrics holds the continuous outcome metrics of one forward
// horizon, in percent change from the entry close.
type HorizonMetrics struct {
	MaxUpPct       float64
	MaxDownPct     float64
	CloseChangePct float64
	RangePct       float64
}

// ThresholdMetrics holds the first-hit times for one threshold and the
// adverse excursion seen before the upside hit. Invalid values mean the
// target was never reached within the maximum horizon; that is distinct
// from a true zero.
type ThresholdMetrics struct {
	TimeToHitUp    null.Int   // hours, 1-indexed
	TimeToHitDown  null.Int   // hours, 1-indexed
	MDDBeforeHitUp null.Float // percent, always <= 0 when valid
}

// LabelKey uniquely identifies a label row in the ledger.
type LabelKey struct {
	PublishedAt string
	SourceID    string
}

// LabelRow is the fully computed historical outcome record for one
// snapshot. Immutable once appended to the ledger.
type LabelRow struct {
	PublishedAt string
	SourceID    string
	EntryTS     int64
	EntryClose  float64
	Horizons    map[int]HorizonMetrics      // keyed by horizon hours
	Thresholds  map[string]ThresholdMetrics // keyed by ThresholdKey
}

// Key returns the dedup key of the row.
func (r *LabelRow) Key() LabelKey {
	return LabelKey{PublishedAt: r.PublishedAt, SourceID: r.SourceID}
}

// ThresholdKey formats a threshold percentage for use in column names,
// replacing the decimal point for fractional values: 0.5 -> "0p5",
// 1.0 -> "1", 5.0 -> "5".
func ThresholdKey(thr float64) string {
	if math.Abs(thr-math.Trunc(thr)) < 1e-9 {
		return strconv.FormatInt(int64(thr), 10)
	}
	return strings.ReplaceAll(strconv.FormatFloat(thr, 'f', -1, 64), ".", "p")
}
