// Package tabular turns an uploaded spreadsheet into delimiter-separated text.
//
// Only the first sheet is read and no header row is assumed. Rows and columns
// keep their sheet order; cells are emitted as the reader formats them.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Format is a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	// ErrUnsupportedFormat means the bytes are not a spreadsheet we can read.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	// ErrEmptySheet means the first sheet has no cells.
	ErrEmptySheet = errors.New("first sheet is empty")
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat picks a reader from the file signature, falling back to the
// extension for formats without one (CSV).
func DetectFormat(data []byte, filename string) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, ole2Magic):
		return FormatXLS, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Normalize reads the first sheet of data and returns it as CSV text.
func Normalize(data []byte, filename string) (string, error) {
	grid, err := ReadGrid(data, filename)
	if err != nil {
		return "", err
	}
	return WriteCSV(grid)
}

// NormalizeFile is Normalize for a local path.
func NormalizeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("NormalizeFile: reading %q: %w", path, err)
	}
	return Normalize(data, filepath.Base(path))
}

// ReadGrid returns the first sheet as a rectangular grid of cell strings.
func ReadGrid(data []byte, filename string) ([][]string, error) {
	format, err := DetectFormat(data, filename)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatXLS:
		rows, err = readXLS(data)
	case FormatCSV:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("ReadGrid: %s: %w", format, err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return pad(rows), nil
}

// WriteCSV encodes grid with standard CSV quoting.
func WriteCSV(grid [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(grid); err != nil {
		return "", fmt.Errorf("WriteCSV: %w", err)
	}
	return buf.String(), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptySheet
	}
	return f.GetRows(sheet)
}

// readXLS goes through a temp file because the xls reader only opens paths.
func readXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "statement-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}

	sheet, err := book.GetSheet(0)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, ErrEmptySheet
	}

	var rows [][]string
	for _, r := range sheet.GetRows() {
		var row []string
		for _, c := range r.GetCols() {
			row = append(row, c.GetString())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// pad widens every row to the widest one so column positions line up.
func pad(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return out
}
