package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseCost converts a cost cell to a number. Empty, non-numeric and
// non-finite cells fail; there is no zero-fill.
//
// Examples:
//
//	ParseCost("1234.5") -> 1234.5, true
//	ParseCost(" 12 ")   -> 12, true
//	ParseCost("1e3")    -> 1000, true
//	ParseCost("N/A")    -> 0, false
//	ParseCost("")       -> 0, false
func ParseCost(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	return decimal.NewFromFloat(f), true
}

// Normalize turns a raw table into a Dataset: it cleans the header,
// resolves the schema against it and coerces the cost column. Rows whose
// cost fails ParseCost are dropped and counted. When the cost column
// itself is missing, every row is kept with a zero cost and the cost
// binding stays unresolved, which disables the views that need it.
func Normalize(raw RawTable, schema Schema) (Dataset, error) {
	if len(raw.Header) == 0 {
		return Dataset{}, &LoadError{Source: raw.Source, Err: ErrEmptySource}
	}
	columns := cleanHeader(raw.Header)
	bindings := Resolve(columns, schema)
	costCol, hasCost := bindings.Column(FieldCost)

	set := RecordSet{Columns: columns, Records: make([]Record, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		if blankRow(row) {
			continue
		}
		values := make(map[string]string, len(columns))
		for i, col := range columns {
			values[col] = strings.TrimSpace(safeGet(row, i))
		}
		rec := Record{Values: values, Cost: decimal.Zero}
		if hasCost {
			cost, ok := ParseCost(values[costCol])
			if !ok {
				set.Dropped++
				continue
			}
			rec.Cost = cost
		}
		set.Records = append(set.Records, rec)
	}

	return Dataset{
		Source:      raw.Source,
		Fingerprint: raw.Fingerprint,
		LoadedAt:    time.Now(),
		Set:         set,
		Bindings:    bindings,
		Schema:      schema,
	}, nil
}

// cleanHeader names blank header cells "Unnamed: <index>" and suffixes
// repeated names with ".1", ".2", ...
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
