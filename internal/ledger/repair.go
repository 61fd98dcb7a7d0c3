package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RepairCSV clamps legacy positive mdd_before_hit_up_* values in an
// existing CSV ledger to 0. This is a one-time data migration for rows
// written before the label computer enforced the sign invariant at
// computation time; new rows never need it. The file is rewritten
// atomically via a temp file.
func RepairCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ledger: %w", err)
	}
	all, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	if len(all) == 0 {
		return 0, nil
	}

	header := all[0]
	var mddCols []int
	for i, c := range header {
		if strings.HasPrefix(c, "mdd_before_hit_up_") {
			mddCols = append(mddCols, i)
		}
	}

	fixes := 0
	for _, rec := range all[1:] {
		for _, i := range mddCols {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				continue
			}
			if v > 0 {
				rec[i] = "0"
				fixes++
			}
		}
	}
	if fixes == 0 {
		return 0, nil
	}

	tmp := path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp ledger: %w", err)
	}
	w := csv.NewWriter(out)
	if err := w.WriteAll(all); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("write repaired ledger: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replace ledger: %w", err)
	}
	return fixes, nil
}
