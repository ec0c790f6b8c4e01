// Package report writes research output: per-phase directories, CSV files,
// xlsx workbooks, and grouped number formatting for console summaries.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/perp-research/internal/model"
)

// Phase directory names under the output root.
const (
	Phase1A = "Phase 1A"
	Phase1B = "Phase 1B"
	Phase2B = "Phase 2B"
	Phase3A = "Phase 3A"
)

// OutputDir returns root/phase/sub..., creating it if needed.
func OutputDir(root, phase string, sub ...string) (string, error) {
	dir := filepath.Join(append([]string{root, phase}, sub...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return dir, nil
}

// WriteCSV writes header and rows to path, replacing any existing file.
func WriteCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV reads a CSV with a header row. Rows are returned as maps keyed by
// column name; missing trailing fields are empty.
func ReadCSV(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], Records(records[0], records[1:]), nil
}

// Records zips rows with header into maps.
func Records(header []string, rows [][]string) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

// Float renders v for CSV; NaN and Inf become empty cells.
func Float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reads a CSV cell; empty or malformed cells are NaN.
func ParseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Date renders t as YYYY-MM-DD, or empty for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(model.DateLayout)
}

var printer = message.NewPrinter(language.English)

// FormatNumber renders v with thousands separators and the given decimals.
func FormatNumber(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

// FormatInt renders n with thousands separators.
func FormatInt(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatUSD renders v as dollars with two decimals, e.g. "$1,234.50".
func FormatUSD(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	if v < 0 {
		return "-$" + FormatNumber(-v, 2)
	}
	return "$" + FormatNumber(v, 2)
}
