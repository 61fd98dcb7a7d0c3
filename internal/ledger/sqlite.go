package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/guregu/null/v6"
	_ "modernc.org/sqlite"

	"MarketBaseline/internal/model"
)

// SQLiteLedger stores label rows in a SQLite database. The composite
// primary key plus INSERT ... ON CONFLICT DO NOTHING gives a real
// compare-and-append primitive, so two runs racing on the same ledger can
// interleave rows but never duplicate or corrupt them.
type SQLiteLedger struct {
	db         *sql.DB
	horizons   []int
	thresholds []float64
	columns    []string
	mu         sync.Mutex
}

// NewSQLiteLedger opens (or creates) the SQLite ledger and runs migrations.
func NewSQLiteLedger(dbPath string, horizons []int, thresholds []float64) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so validation and aggregation reads do not block appends.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	l := &SQLiteLedger{
		db:         db,
		horizons:   horizons,
		thresholds: thresholds,
		columns:    Header(horizons, thresholds),
	}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite ledger opened: %s", dbPath)
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS labels (
		published_at TEXT NOT NULL,
		source_id    TEXT NOT NULL,
		entry_ts     INTEGER NOT NULL,
		entry_close  REAL NOT NULL`)
	for _, h := range l.horizons {
		fmt.Fprintf(&b, ",\n\t\tmax_up_pct_%d REAL", h)
		fmt.Fprintf(&b, ",\n\t\tmax_down_pct_%d REAL", h)
		fmt.Fprintf(&b, ",\n\t\tclose_change_pct_%d REAL", h)
		fmt.Fprintf(&b, ",\n\t\trange_pct_%d REAL", h)
	}
	for _, thr := range l.thresholds {
		k := model.ThresholdKey(thr)
		fmt.Fprintf(&b, ",\n\t\tt_hit_up_%s INTEGER", k)
		fmt.Fprintf(&b, ",\n\t\tt_hit_down_%s INTEGER", k)
		fmt.Fprintf(&b, ",\n\t\tmdd_before_hit_up_%s REAL", k)
	}
	b.WriteString(",\n\t\tPRIMARY KEY (published_at, source_id)\n\t)")

	stmts := []string{
		b.String(),
		`CREATE INDEX IF NOT EXISTS idx_labels_entry_ts ON labels(entry_ts)`,
	}
	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Keys reads the full set of existing row keys. Called once per run.
func (l *SQLiteLedger) Keys() (map[model.LabelKey]struct{}, error) {
	rows, err := l.db.Query(`SELECT published_at, source_id FROM labels`)
	if err != nil {
		return nil, fmt.Errorf("query ledger keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[model.LabelKey]struct{})
	for rows.Next() {
		var k model.LabelKey
		if err := rows.Scan(&k.PublishedAt, &k.SourceID); err != nil {
			return nil, fmt.Errorf("scan ledger key: %w", err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// Append inserts one row. An existing key is left untouched.
func (l *SQLiteLedger) Append(row *model.LabelRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	args := make([]any, 0, len(l.columns))
	args = append(args, row.PublishedAt, row.SourceID, row.EntryTS, row.EntryClose)
	for _, h := range l.horizons {
		m := row.Horizons[h]
		args = append(args, m.MaxUpPct, m.MaxDownPct, m.CloseChangePct, m.RangePct)
	}
	for _, thr := range l.thresholds {
		m := row.Thresholds[model.ThresholdKey(thr)]
		args = append(args, m.TimeToHitUp, m.TimeToHitDown, m.MDDBeforeHitUp)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(l.columns)), ",")
	query := fmt.Sprintf(
		`INSERT INTO labels (%s) VALUES (%s) ON CONFLICT(published_at, source_id) DO NOTHING`,
		strings.Join(l.columns, ", "), placeholders,
	)
	if _, err := l.db.Exec(query, args...); err != nil {
		return fmt.Errorf("insert label row: %w", err)
	}
	return nil
}

// Rows reads and decodes every stored row in insertion order.
func (l *SQLiteLedger) Rows() ([]*model.LabelRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM labels ORDER BY rowid`, strings.Join(l.columns, ", "))
	rows, err := l.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []*model.LabelRow
	for rows.Next() {
		row := &model.LabelRow{
			Horizons:   make(map[int]model.HorizonMetrics, len(l.horizons)),
			Thresholds: make(map[string]model.ThresholdMetrics, len(l.thresholds)),
		}

		horizonVals := make([]float64, len(l.horizons)*4)
		hitInts := make([]null.Int, len(l.thresholds)*2)
		mdds := make([]null.Float, len(l.thresholds))

		dest := make([]any, 0, len(l.columns))
		dest = append(dest, &row.PublishedAt, &row.SourceID, &row.EntryTS, &row.EntryClose)
		for i := range horizonVals {
			dest = append(dest, &horizonVals[i])
		}
		for j := range l.thresholds {
			dest = append(dest, &hitInts[2*j], &hitInts[2*j+1], &mdds[j])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}

		for i, h := range l.horizons {
			row.Horizons[h] = model.HorizonMetrics{
				MaxUpPct:       horizonVals[4*i],
				MaxDownPct:     horizonVals[4*i+1],
				CloseChangePct: horizonVals[4*i+2],
				RangePct:       horizonVals[4*i+3],
			}
		}
		for j, thr := range l.thresholds {
			row.Thresholds[model.ThresholdKey(thr)] = model.ThresholdMetrics{
				TimeToHitUp:    hitInts[2*j],
				TimeToHitDown:  hitInts[2*j+1],
				MDDBeforeHitUp: mdds[j],
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	log.Println("[INFO] closing sqlite ledger")
	return l.db.Close()
}
