package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxSheetName is the Excel sheet name limit.
const MaxSheetName = 31

const defaultSheet = "Sheet1"

// Workbook builds an xlsx file one sheet at a time.
type Workbook struct {
	f      *excelize.File
	sheets []string
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// SheetName makes name a valid, unique-length Excel sheet name.
func SheetName(name string) string {
	r := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")")
	name = r.Replace(name)
	if runes := []rune(name); len(runes) > MaxSheetName {
		name = string(runes[:MaxSheetName])
	}
	return name
}

// AddSheet appends a sheet with a header row and data rows. Cells may be
// strings, numbers, bools or nil; NaN and Inf are written empty.
func (w *Workbook) AddSheet(name string, header []string, rows [][]any) error {
	name = SheetName(name)
	for _, s := range w.sheets {
		if s == name {
			return fmt.Errorf("duplicate sheet %q", name)
		}
	}

	if len(w.sheets) == 0 {
		if err := w.f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %q: %w", name, err)
	}
	w.sheets = append(w.sheets, name)

	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := w.setRow(name, 1, hdr); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.setRow(name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) setRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	clean := make([]any, len(values))
	for i, v := range values {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			continue
		}
		clean[i] = v
	}
	if err := w.f.SetSheetRow(sheet, cell, &clean); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// Sheets returns the sheet names in insertion order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// Save writes the workbook to path and releases it.
func (w *Workbook) Save(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return w.f.Close()
}

// ReadSheet returns the header and data rows of one sheet.
func ReadSheet(path, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName(sheet), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read %s[%s]: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

// SheetList returns the sheet names of an existing workbook.
func SheetList(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
