package memory

import (
	"context"
	"sync"

	"custos/internal/core"
	"custos/internal/sheets"
)

// Reader serves a table held in memory. It backs demos and tests and can
// be swapped at runtime with Replace.
type Reader struct {
	mu     sync.Mutex
	source string
	header []string
	rows   [][]string
}

func New(source string, header []string, rows [][]string) *Reader {
	r := &Reader{source: source}
	r.set(header, rows)
	return r
}

// NewSample returns a reader seeded with a small maintenance cost table.
func NewSample() *Reader {
	return New("memória", SampleHeader(), SampleRows())
}

// Source implements sheets.TableReader.
func (r *Reader) Source() string { return r.source }

// ReadTable returns a copy of the current table.
func (r *Reader) ReadTable(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.header) == 0 {
		return core.RawTable{}, &core.LoadError{Source: r.source, Err: core.ErrEmptySource}
	}
	header := append([]string(nil), r.header...)
	rows := copyRows(r.rows)
	return core.RawTable{
		Source:      r.source,
		Header:      header,
		Rows:        rows,
		Fingerprint: sheets.Fingerprint(header, rows),
	}, nil
}

// Replace swaps the table served by subsequent reads.
func (r *Reader) Replace(header []string, rows [][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(header, rows)
}

func (r *Reader) set(header []string, rows [][]string) {
	r.header = append([]string(nil), header...)
	r.rows = copyRows(rows)
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// SampleHeader uses the column names of the reference spreadsheet.
func SampleHeader() []string {
	return []string{
		"Grp.planej.manutenç.", "Tipo de Ordem", "Local de Instalação",
		"Ordem", "Cabeçalho da ordem", "Equipamento", "PROCESSO", "Valor",
	}
}

func SampleRows() [][]string {
	return [][]string{
		{"MEC", "PM01", "AREA-01", "4001", "Troca de rolamento", "BOMBA-01", "MOAGEM", "1250.00"},
		{"MEC", "PM02", "AREA-01", "4002", "Inspeção preventiva", "BOMBA-01", "MOAGEM", "320.50"},
		{"ELE", "PM01", "AREA-02", "4003", "Reparo de motor", "MOTOR-07", "FLOTAÇÃO", "5400.00"},
		{"ELE", "PM03", "AREA-02", "4004", "Troca de cabo", "MOTOR-07", "FLOTAÇÃO", "870.25"},
		{"INS", "PM02", "AREA-03", "4005", "Calibração", "TRANSM-12", "FILTRAGEM", "410.00"},
		{"MEC", "PM01", "AREA-03", "4006", "Troca de correia", "CORREIA-03", "FILTRAGEM", "2310.75"},
		{"INS", "PM01", "AREA-01", "4007", "Ajuste de válvula", "VALV-22", "MOAGEM", "N/A"},
	}
}
