package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"custos/internal/core"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]interface{}, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			rowCopy := row
			if err := f.SetSheetRow(name, cell, &rowCopy); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestReadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custos.xlsx")
	writeWorkbook(t, path, map[string][][]interface{}{
		"Custos": {
			{"Grp.planej.manutenç.", "Tipo de Ordem", "Valor", "Ordem"},
			{"G1", "PM01", 1234.5, 4001234},
			{"G2", "PM02", "N/A", 4001235},
		},
	}, []string{"Custos"})

	table, err := New(path, "").ReadTable(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if table.Source != path || len(table.Header) != 4 || len(table.Rows) != 2 {
		t.Fatalf("unexpected table %+v", table)
	}
	if got := table.Rows[0][2]; got != "1234.5" {
		t.Fatalf("cost cell got %q", got)
	}
	if got := table.Rows[0][3]; got != "4001234" {
		t.Fatalf("order cell got %q", got)
	}
	if table.Fingerprint == 0 {
		t.Fatalf("expected fingerprint")
	}
}

func TestReadTable_XLSXNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custos.xlsx")
	writeWorkbook(t, path, map[string][][]interface{}{
		"Resumo": {{"Nada"}},
		"Custos": {{"Valor"}, {10}},
	}, []string{"Resumo", "Custos"})

	table, err := New(path, "Custos").ReadTable(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if table.Header[0] != "Valor" || len(table.Rows) != 1 {
		t.Fatalf("unexpected table %+v", table)
	}

	_, err = New(path, "Outra").ReadTable(context.Background())
	var le *core.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for unknown sheet, got %v", err)
	}
}

func TestReadTable_CSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"comma", "Valor,Ordem\n10,4001\n20,4002\n"},
		{"semicolon", "Valor;Ordem\n10;4001\n20;4002\n"},
		{"bom", "\xef\xbb\xbfValor,Ordem\n10,4001\n20,4002\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "custos.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			table, err := New(path, "").ReadTable(context.Background())
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(table.Header) != 2 || table.Header[0] != "Valor" {
				t.Fatalf("header = %q", table.Header)
			}
			if len(table.Rows) != 2 || table.Rows[1][1] != "4002" {
				t.Fatalf("rows = %v", table.Rows)
			}
		})
	}
}

func TestReadTable_Errors(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	_, err := New(filepath.Join(dir, "custos.xlsx"), "").ReadTable(context.Background())
	if !errors.Is(err, core.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	var le *core.LoadError
	if errors.As(err, &le) {
		t.Fatalf("missing file must not be a LoadError")
	}

	_, err = New(mustWrite("corrupt.xlsx", "not a zip"), "").ReadTable(context.Background())
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for corrupt workbook, got %v", err)
	}

	_, err = New(mustWrite("custos.ods", "x"), "").ReadTable(context.Background())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = New(mustWrite("empty.csv", ""), "").ReadTable(context.Background())
	if !errors.Is(err, core.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(mustWrite("ok.csv", "Valor\n1\n"), "").ReadTable(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadTable_CorruptXLS(t *testing.T) {
	// An OLE2 signature followed by a zeroed header.
	ole := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 504)...)

	tests := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("Grp.planej.manutenç.;Valor\nMEC;10\n")},
		{"truncated compound file", ole},
		{"empty file", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "custos.xls")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := New(path, "").ReadTable(context.Background())
			var le *core.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected LoadError, got %v", err)
			}
			if le.Source != path {
				t.Errorf("LoadError.Source = %q, want %q", le.Source, path)
			}
			if errors.Is(err, core.ErrSourceNotFound) {
				t.Errorf("corrupt workbook reported as missing: %v", err)
			}
		})
	}
}

func TestSniffSeparator(t *testing.T) {
	if sniffSeparator([]byte("a;b;c\n1,5;2;3")) != ';' {
		t.Fatalf("expected semicolon")
	}
	if sniffSeparator([]byte("a,b\n")) != ',' {
		t.Fatalf("expected comma")
	}
}
