package model

// CompactBarFields is the number of fields in a well-formed compact candle
// record: [timestamp, open, high, low, close, volume].
const CompactBarFields = 6

// Bar is a single hourly OHLCV observation, keyed by its open timestamp.
// Two bars with the same timestamp are the same observation.
type Bar struct {
	Timestamp int64 // epoch seconds, hour-aligned
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BarFromRecord converts a compact record into a Bar. A record with fewer
// than 6 fields is malformed and rejected.
func BarFromRecord(rec []float64) (Bar, bool) {
	if len(rec) < CompactBarFields {
		return Bar{}, false
	}
	return Bar{
		Timestamp: int64(rec[0]),
		Open:      rec[1],
		High:      rec[2],
		Low:       rec[3],
		Close:     rec[4],
		Volume:    rec[5],
	}, true
}
