// Package file reads cost spreadsheets from the local filesystem.
//
// Supported formats are chosen by extension: .xlsx/.xlsm (excelize),
// legacy .xls (xlsReader) and .csv (comma or semicolon separated).
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"github.com/zeebo/xxh3"

	"custos/internal/core"
	ports "custos/internal/sheets"
)

// ErrUnsupportedFormat is returned for extensions no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

type Reader struct {
	path  string
	sheet string
}

var _ ports.TableReader = (*Reader)(nil)

// New returns a reader for path. An empty sheet selects the first
// worksheet; it is ignored for CSV files.
func New(path, sheet string) *Reader {
	return &Reader{path: path, sheet: strings.TrimSpace(sheet)}
}

// Source names the spreadsheet in user-facing messages.
func (r *Reader) Source() string {
	return r.path
}

// ReadTable reads the whole file. The fingerprint is the xxh3 hash of the
// file bytes.
func (r *Reader) ReadTable(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, &core.LoadError{Source: r.path, Err: err}
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.RawTable{}, fmt.Errorf("read %s: %w", r.path, core.ErrSourceNotFound)
		}
		return core.RawTable{}, &core.LoadError{Source: r.path, Err: err}
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(r.path)); ext {
	case ".xlsx", ".xlsm", ".xltx":
		rows, err = parseXLSX(data, r.sheet)
	case ".xls":
		rows, err = parseXLS(r.path, r.sheet)
	case ".csv", ".txt":
		rows, err = parseCSV(data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return core.RawTable{}, &core.LoadError{Source: r.path, Err: err}
	}
	if len(rows) == 0 {
		return core.RawTable{}, &core.LoadError{Source: r.path, Err: core.ErrEmptySource}
	}

	return core.RawTable{
		Source:      r.path,
		Header:      rows[0],
		Rows:        rows[1:],
		Fingerprint: xxh3.Hash(data),
	}, nil
}

// parseXLSX returns raw cell values, so numbers come back unformatted
// ("1234.5" rather than "1.234,50").
func parseXLSX(data []byte, sheet string) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	name := sheets[0]
	if sheet != "" {
		found := false
		for _, s := range sheets {
			if s == sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("worksheet %q not found (available: %s)", sheet, strings.Join(sheets, ", "))
		}
		name = sheet
	}

	rows, err := xl.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", name, err)
	}
	return rows, nil
}

// parseXLS reads a legacy workbook. xlsReader can panic on malformed
// compound files, so a panic is reported as a parse error.
func parseXLS(path, sheet string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("open workbook: malformed file: %v", r)
		}
	}()

	book, err := xls.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	target := -1
	for i := 0; i < book.GetNumberSheets(); i++ {
		s, err := book.GetSheet(i)
		if err != nil || s == nil {
			continue
		}
		if sheet == "" || s.GetName() == sheet {
			target = i
			break
		}
	}
	if target < 0 {
		if sheet != "" {
			return nil, fmt.Errorf("worksheet %q not found", sheet)
		}
		return nil, errors.New("no sheets found")
	}
	ws, err := book.GetSheet(target)
	if err != nil {
		return nil, fmt.Errorf("read sheet %d: %w", target, err)
	}

	for _, row := range ws.GetRows() {
		cols := row.GetCols()
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			cells = append(cells, col.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// parseCSV accepts comma or semicolon separated files; the separator is
// whichever appears more often in the header line.
func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffSeparator(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func sniffSeparator(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
