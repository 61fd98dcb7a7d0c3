package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"MarketBaseline/internal/model"
)

// CSVLedger stores label rows in a single append-only CSV file with the
// Header column order. The header is written once when the file is created;
// each Append is a single buffered row write in O_APPEND mode, so a run
// either appends a whole row or nothing.
type CSVLedger struct {
	path       string
	header     []string
	colIdx     map[string]int
	horizons   []int
	thresholds []float64
	mu         sync.Mutex
}

// NewCSVLedger opens (or creates) the CSV ledger at path. An existing file
// must carry exactly the configured header; a mismatch means the file
// belongs to a different configuration and is refused rather than silently
// mixed.
func NewCSVLedger(path string, horizons []int, thresholds []float64) (*CSVLedger, error) {
	l := &CSVLedger{
		path:       path,
		header:     Header(horizons, thresholds),
		horizons:   horizons,
		thresholds: thresholds,
	}
	l.colIdx = make(map[string]int, len(l.header))
	for i, c := range l.header {
		l.colIdx[c] = i
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if err := l.writeHeader(); err != nil {
			return nil, err
		}
		log.Printf("[INFO] csv ledger created: %s", path)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	stored, err := csv.NewReader(f).Read()
	if err == io.EOF {
		// empty file left behind by an aborted run
		if err := l.writeHeader(); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	if len(stored) != len(l.header) {
		return nil, fmt.Errorf("ledger header has %d columns, config expects %d", len(stored), len(l.header))
	}
	for i, c := range stored {
		if c != l.header[i] {
			return nil, fmt.Errorf("ledger column %d is %q, config expects %q", i, c, l.header[i])
		}
	}
	return l, nil
}

func (l *CSVLedger) writeHeader() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(l.header); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Keys reads the full set of existing row keys. Called once per run, before
// any append.
func (l *CSVLedger) Keys() (map[model.LabelKey]struct{}, error) {
	records, err := l.readAll()
	if err != nil {
		return nil, err
	}
	keys := make(map[model.LabelKey]struct{}, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		keys[model.LabelKey{PublishedAt: rec[0], SourceID: rec[1]}] = struct{}{}
	}
	return keys, nil
}

// Append writes one row to the end of the file.
func (l *CSVLedger) Append(row *model.LabelRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(encodeRow(row, l.horizons, l.thresholds)); err != nil {
		return fmt.Errorf("write label row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Rows reads and decodes every stored row in file order. Rows that fail to
// decode are skipped with a warning; one malformed row never blocks an
// aggregation pass.
func (l *CSVLedger) Rows() ([]*model.LabelRow, error) {
	records, err := l.readAll()
	if err != nil {
		return nil, err
	}
	rows := make([]*model.LabelRow, 0, len(records))
	for i, rec := range records {
		row, err := decodeRow(l.colIdx, rec, l.horizons, l.thresholds)
		if err != nil {
			log.Printf("[WARN] skip ledger row %d: %v", i+2, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *CSVLedger) Close() error { return nil }

// readAll returns every data record (header excluded). Any read error is
// surfaced as-is: a wholly unreadable ledger is fatal for the run.
func (l *CSVLedger) readAll() ([][]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}
