package core

import (
	"errors"
	"testing"
)

func TestNormalizeDropsRowsWithoutNumericCost(t *testing.T) {
	raw := RawTable{
		Source: "custos.xlsx",
		Header: []string{"Grp.planej.manutenç.", "Tipo de Ordem", "Valor"},
		Rows: [][]string{
			{"A", "X", "100"},
			{"A", "Y", "N/A"},
			{"B", "X", ""},
			{"B", "Y", "50"},
		},
	}
	ds, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Set.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", ds.Set.Len())
	}
	if ds.Set.Dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", ds.Set.Dropped)
	}
	if got := Total(ds.Set.Records).String(); got != "150" {
		t.Fatalf("total = %s", got)
	}
	if ds.Source != "custos.xlsx" {
		t.Fatalf("source = %q", ds.Source)
	}
}

func TestNormalizeHeaderCleanup(t *testing.T) {
	raw := RawTable{
		Header: []string{" Valor ", "", "Ordem", "Ordem", "Ordem"},
		Rows:   [][]string{{"1", "x", "10", "11", "12"}},
	}
	ds, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Valor", "Unnamed: 1", "Ordem", "Ordem.1", "Ordem.2"}
	for i, c := range want {
		if ds.Set.Columns[i] != c {
			t.Fatalf("columns = %v, want %v", ds.Set.Columns, want)
		}
	}
	rec := ds.Set.Records[0]
	if rec.Value("Ordem") != "10" || rec.Value("Ordem.2") != "12" {
		t.Fatalf("unexpected values %v", rec.Values)
	}
}

func TestNormalizeShortAndBlankRows(t *testing.T) {
	raw := RawTable{
		Header: []string{"Valor", "Ordem", "Local de Instalação"},
		Rows: [][]string{
			{"10", "4001"},
			{"", "", ""},
			{},
			{" 20 ", " 4002 ", " L1 "},
		},
	}
	ds, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Set.Len() != 2 || ds.Set.Dropped != 0 {
		t.Fatalf("len=%d dropped=%d", ds.Set.Len(), ds.Set.Dropped)
	}
	if v := ds.Set.Records[0].Value("Local de Instalação"); v != "" {
		t.Fatalf("missing cell should be empty, got %q", v)
	}
	if v := ds.Set.Records[1].Value("Ordem"); v != "4002" {
		t.Fatalf("cells should be trimmed, got %q", v)
	}
}

func TestNormalizeWithoutCostColumnKeepsRows(t *testing.T) {
	raw := RawTable{
		Header: []string{"Tipo de Ordem"},
		Rows:   [][]string{{"X"}, {"Y"}},
	}
	ds, err := Normalize(raw, DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Set.Len() != 2 || ds.Set.Dropped != 0 {
		t.Fatalf("len=%d dropped=%d", ds.Set.Len(), ds.Set.Dropped)
	}
	if _, ok := ds.Bindings.Column(FieldCost); ok {
		t.Fatalf("cost should be unresolved")
	}
}

func TestNormalizeEmptyHeader(t *testing.T) {
	_, err := Normalize(RawTable{Source: "x.csv"}, DefaultSchema())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource in chain")
	}
}

func TestLoadFailureMessages(t *testing.T) {
	title, guidance := LoadFailureMessages("custos.xlsx", &LoadError{Source: "custos.xlsx", Err: ErrSourceNotFound})
	if title != "ERRO: O arquivo 'custos.xlsx' não foi encontrado." {
		t.Fatalf("title = %q", title)
	}
	if guidance == "" {
		t.Fatalf("expected guidance for missing source")
	}

	title, guidance = LoadFailureMessages("custos.xlsx", &LoadError{Source: "custos.xlsx", Err: errors.New("zip: not a valid zip file")})
	if title != "Ocorreu um erro ao carregar ou processar a planilha: zip: not a valid zip file" {
		t.Fatalf("title = %q", title)
	}
	if guidance != "" {
		t.Fatalf("unexpected guidance %q", guidance)
	}
}
