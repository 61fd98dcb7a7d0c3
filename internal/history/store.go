package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"MarketBaseline/internal/model"
)

// Store reads snapshot JSON files from the on-disk history archive, laid
// out as <root>/<YYYY-MM-DD>/<name>.json by the acquisition job.
type Store struct {
	root   string
	series string
}

// NewStore creates a Store over the given archive root, extracting the
// named candle series from each snapshot.
func NewStore(root, series string) *Store {
	return &Store{root: root, series: series}
}

type snapshotFile struct {
	PublishedAtUTC string                 `json:"published_at_utc"`
	Candles        map[string][][]float64 `json:"candles"`
}

// LatestSnapshots loads every snapshot in the archive in sorted path order.
// Unreadable or unparseable files are skipped with a warning so one bad
// file never blocks the rest of the archive; deciding whether an empty
// result is fatal is the caller's concern.
func (s *Store) LatestSnapshots() ([]model.Snapshot, error) {
	pattern := filepath.Join(s.root, "*", "*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob history files: %w", err)
	}
	sort.Strings(paths)

	snaps := make([]model.Snapshot, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Printf("[WARN] read snapshot %s: %v", p, err)
			continue
		}
		var sf snapshotFile
		if err := json.Unmarshal(data, &sf); err != nil {
			log.Printf("[WARN] parse snapshot %s: %v", p, err)
			continue
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			rel = p
		}
		snaps = append(snaps, model.Snapshot{
			PublishedAt: sf.PublishedAtUTC,
			SourceID:    filepath.ToSlash(rel),
			Candles:     sf.Candles[s.series],
		})
	}
	return snaps, nil
}
