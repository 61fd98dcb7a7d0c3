package label

import "MarketBaseline/internal/model"

// ResolveEntry derives the canonical decision point of a snapshot from its
// own candle records: the last record's timestamp and close. Because the
// timeline is built from the same record timestamps, a resolved entry is
// always a key present in the timeline.
//
// An empty candle list, or a last record without both timestamp and close,
// returns ok=false and the snapshot is skipped entirely; no partial label
// row is ever produced.
func ResolveEntry(s model.Snapshot) (entryTS int64, entryClose float64, ok bool) {
	if len(s.Candles) == 0 {
		return 0, 0, false
	}
	last := s.Candles[len(s.Candles)-1]
	if len(last) < 5 {
		return 0, 0, false
	}
	return int64(last[0]), last[4], true
}
