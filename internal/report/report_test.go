package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputDirAndCSV(t *testing.T) {
	root := t.TempDir()
	dir, err := OutputDir(root, Phase2B, "Daily Volume Analysis")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Phase 2B", "Daily Volume Analysis"), dir)

	path := filepath.Join(dir, "x.csv")
	require.NoError(t, WriteCSV(path, []string{"a", "b"}, [][]string{{"1", "x,y"}, {"2"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "a,b\n1,\"x,y\"\n"))

	header, rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "x,y", rows[0]["b"])
	assert.Equal(t, "", rows[1]["b"])
}

func TestFloatCells(t *testing.T) {
	assert.Equal(t, "", Float(math.NaN()))
	assert.Equal(t, "1.5", Float(1.5))
	assert.True(t, math.IsNaN(ParseFloat("")))
	assert.True(t, math.IsNaN(ParseFloat("abc")))
	assert.Equal(t, -2.25, ParseFloat("-2.25"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatNumber(1234567.891, 2))
	assert.Equal(t, "$1,234.50", FormatUSD(1234.5))
	assert.Equal(t, "-$10.00", FormatUSD(-10))
	assert.Equal(t, "N/A", FormatUSD(math.NaN()))
	assert.Equal(t, "12,345", FormatInt(12345))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Traditional Commodity", SheetName("Traditional Commodity"))
	assert.Len(t, []rune(SheetName(strings.Repeat("x", 40))), MaxSheetName)
	assert.Equal(t, "xyz_GOLD", SheetName("xyz:GOLD"))
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	wb := NewWorkbook()
	require.NoError(t, wb.AddSheet("ohlcv_1h", []string{"time", "defi_close"}, [][]any{
		{"2024-01-01 00:00:00", 1.5},
		{"2024-01-01 01:00:00", math.NaN()},
	}))
	require.NoError(t, wb.AddSheet("meta", []string{"key", "value"}, [][]any{{"asset_type", "Index"}}))
	assert.Error(t, wb.AddSheet("meta", nil, nil))
	require.NoError(t, wb.Save(path))

	sheets, err := SheetList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ohlcv_1h", "meta"}, sheets)

	header, rows, err := ReadSheet(path, "ohlcv_1h")
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "defi_close"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.5", rows[0][1])
	assert.Len(t, rows[1], 1, "NaN cell left empty")

	_, meta, err := ReadSheet(path, "meta")
	require.NoError(t, err)
	assert.Equal(t, "Index", meta[0][1])
}
