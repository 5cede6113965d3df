package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field is a logical data attribute, independent of the physical column
// name used by a given spreadsheet.
type Field string

const (
	FieldCost          Field = "cost"
	FieldPlanningGroup Field = "planning_group"
	FieldOrderType     Field = "order_type"
	FieldSite          Field = "installation_site"
	FieldOrderNumber   Field = "order_number"
	FieldOrderHeader   Field = "order_header"
	FieldEquipment     Field = "equipment"
	FieldProcess       Field = "process"
)

// AllValues is the selection sentinel meaning "no restriction".
const AllValues = "Todos"

type (
	// RawTable is a spreadsheet as read from a source, before any
	// normalization. Header is the first row.
	RawTable struct {
		Source      string
		Header      []string
		Rows        [][]string
		Fingerprint uint64
	}

	// Record is one normalized row. Values is keyed by physical column name.
	Record struct {
		Values map[string]string
		Cost   decimal.Decimal
	}

	// RecordSet is the normalized, ordered set of records of one load.
	RecordSet struct {
		Columns []string
		Records []Record
		Dropped int
	}

	// Dataset is everything produced by a successful load. It is never
	// mutated after Normalize returns it.
	Dataset struct {
		Source      string
		Fingerprint uint64
		LoadedAt    time.Time
		Set         RecordSet
		Bindings    Bindings
		Schema      Schema
	}

	// Selection is the set of values selected for one filter field.
	Selection []string

	// Selections maps filter fields to their selection. A missing field
	// imposes no restriction.
	Selections map[Field]Selection
)

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrEmptySource    = errors.New("source has no header row")
)

// LoadError wraps any read or parse failure other than a missing source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FieldUnresolvedError reports a logical field with no matching column.
// It never aborts a load; views turn it into a warning.
type FieldUnresolvedError struct {
	Field    Field
	Variants []string
}

func (e *FieldUnresolvedError) Error() string {
	return fmt.Sprintf("A coluna '%s' não foi encontrada na base de dados.", strings.Join(e.Variants, "'/'"))
}

// Value returns the cell for a physical column, or "" when absent.
func (r Record) Value(column string) string {
	return r.Values[column]
}

// Len returns the number of records.
func (rs RecordSet) Len() int { return len(rs.Records) }

// IsAll reports whether the sentinel appears anywhere in the selection.
func (s Selection) IsAll() bool {
	for _, v := range s {
		if v == AllValues {
			return true
		}
	}
	return false
}

// LoadFailureMessages returns the user-facing title and guidance for a
// failed load.
func LoadFailureMessages(source string, err error) (title, guidance string) {
	if errors.Is(err, ErrSourceNotFound) {
		return fmt.Sprintf("ERRO: O arquivo '%s' não foi encontrado.", source),
			"Verifique se o arquivo está na mesma pasta do seu script."
	}
	cause := err
	var le *LoadError
	if errors.As(err, &le) && le.Err != nil {
		cause = le.Err
	}
	return fmt.Sprintf("Ocorreu um erro ao carregar ou processar a planilha: %v", cause), ""
}
