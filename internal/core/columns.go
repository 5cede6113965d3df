package core

import (
	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
)

// Binding is the physical column a logical field resolved to.
// Resolved is false when none of the variants is in the schema.
type Binding struct {
	Field    Field
	Column   string
	Resolved bool
}

// Bindings holds one binding per schema field, in schema order.
type Bindings struct {
	entries []Binding
}

// ResolveColumn returns the first variant present in columns. Names are
// compared in Unicode NFC so that "ç" typed as c + combining cedilla still
// matches; the returned name is the one actually present in columns.
func ResolveColumn(columns []string, variants []string) (string, bool) {
	present := make(map[string]string, len(columns))
	for _, c := range columns {
		key := norm.NFC.String(c)
		if _, dup := present[key]; !dup {
			present[key] = c
		}
	}
	variant, ok := lo.Find(variants, func(v string) bool {
		_, hit := present[norm.NFC.String(v)]
		return hit
	})
	if !ok {
		return "", false
	}
	return present[norm.NFC.String(variant)], true
}

// Resolve binds every field of the schema against the loaded columns.
func Resolve(columns []string, schema Schema) Bindings {
	specs := schema.Fields()
	entries := make([]Binding, 0, len(specs))
	for _, spec := range specs {
		col, ok := ResolveColumn(columns, spec.Variants)
		entries = append(entries, Binding{Field: spec.Field, Column: col, Resolved: ok})
	}
	return Bindings{entries: entries}
}

// Column returns the physical column bound to f.
func (b Bindings) Column(f Field) (string, bool) {
	for _, e := range b.entries {
		if e.Field == f {
			return e.Column, e.Resolved
		}
	}
	return "", false
}

// Unresolved lists the fields without a column, in schema order.
func (b Bindings) Unresolved() []Field {
	var out []Field
	for _, e := range b.entries {
		if !e.Resolved {
			out = append(out, e.Field)
		}
	}
	return out
}

// All returns every binding in schema order.
func (b Bindings) All() []Binding {
	out := make([]Binding, len(b.entries))
	copy(out, b.entries)
	return out
}

// Require returns the columns bound to fields, or a FieldUnresolvedError
// for the first field that has none.
func (b Bindings) Require(schema Schema, fields ...Field) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := b.Column(f)
		if !ok {
			return nil, &FieldUnresolvedError{Field: f, Variants: schema.Variants(f)}
		}
		cols = append(cols, col)
	}
	return cols, nil
}
