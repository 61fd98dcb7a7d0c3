package model

import "sort"

// Snapshot is one immutable hourly market snapshot as published by the
// acquisition job: publish metadata plus the compact candle records it
// embeds for the instrument.
type Snapshot struct {
	PublishedAt string      // publish timestamp, as recorded by the producer
	SourceID    string      // stable identifier of the snapshot within the archive
	Candles     [][]float64 // compact [ts, open, high, low, close, volume] records
}

// SortSnapshots orders snapshots by (PublishedAt, SourceID) in place.
// Every pass over the snapshot set uses this order, so duplicate-candle
// resolution and ledger row ordering are deterministic across runs.
func SortSnapshots(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].PublishedAt != snaps[j].PublishedAt {
			return snaps[i].PublishedAt < snaps[j].PublishedAt
		}
		return snaps[i].SourceID < snaps[j].SourceID
	})
}
