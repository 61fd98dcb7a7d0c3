package ledger

import (
	"path/filepath"
	"testing"
)

func TestSQLiteLedger_AppendDedupRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.db")
	l, err := NewSQLiteLedger(path, testHorizons, testThresholds)
	if err != nil {
		t.Fatalf("open sqlite ledger: %v", err)
	}
	defer l.Close()

	row := sampleRow()
	if err := l.Append(row); err != nil {
		t.Fatalf("append: %v", err)
	}
	// appending the same key again must be a silent no-op
	if err := l.Append(row); err != nil {
		t.Fatalf("duplicate append: %v", err)
	}

	keys, err := l.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key after duplicate append, got %d", len(keys))
	}

	rows, err := l.Rows()
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.PublishedAt != row.PublishedAt || got.EntryTS != row.EntryTS {
		t.Errorf("row mismatch: %+v", got)
	}
	if got.Horizons[12] != row.Horizons[12] {
		t.Errorf("horizon 12 mismatch: %+v vs %+v", got.Horizons[12], row.Horizons[12])
	}
	m := got.Thresholds["0p5"]
	if !m.TimeToHitUp.Valid || m.TimeToHitUp.Int64 != 3 {
		t.Errorf("t_hit_up_0p5 mismatch: %+v", m.TimeToHitUp)
	}
	never := got.Thresholds["1"]
	if never.TimeToHitUp.Valid || never.MDDBeforeHitUp.Valid {
		t.Errorf("NULL columns must decode as absent: %+v", never)
	}
}
