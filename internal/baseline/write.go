package baseline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"
)

var csvColumns = []string{
	"target_pct",
	"horizon_h",
	"n_total",
	"n_hit",
	"p_hit",
	"t_hit_p25",
	"t_hit_median",
	"t_hit_p75",
	"mdd_p25",
	"mdd_median",
	"mdd_p75",
}

// WriteCSV emits the flat tabular form, one row per (threshold, horizon)
// pair in configuration order, for spreadsheet-style consumption. Absent
// quantiles are empty fields.
func (s *Summary) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create baseline csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write baseline header: %w", err)
	}
	for _, thr := range s.Thresholds {
		for _, h := range s.Horizons {
			stat, ok := s.Lookup(thr, h)
			if !ok {
				continue
			}
			rec := []string{
				formatThreshold(thr),
				strconv.Itoa(h),
				strconv.Itoa(stat.NTotal),
				strconv.Itoa(stat.NHit),
				strconv.FormatFloat(stat.PHit, 'f', -1, 64),
				formatNull(stat.HitTimeP25),
				formatNull(stat.HitTimeMedian),
				formatNull(stat.HitTimeP75),
				formatNull(stat.MDDP25),
				formatNull(stat.MDDMedian),
				formatNull(stat.MDDP75),
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("write baseline row: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON emits the hierarchical summary form.
func (s *Summary) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write baseline summary: %w", err)
	}
	return nil
}

func formatNull(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
