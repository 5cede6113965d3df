package core

import (
	"sort"

	"github.com/samber/lo"
)

// Filter keeps the records matching every selection. A field is skipped
// when it has no binding or when its selection contains AllValues, even
// alongside specific values. An empty selection matches nothing.
func Filter(set RecordSet, bindings Bindings, selections Selections) RecordSet {
	type constraint struct {
		column  string
		allowed map[string]struct{}
	}
	var constraints []constraint
	for field, sel := range selections {
		if sel.IsAll() {
			continue
		}
		col, ok := bindings.Column(field)
		if !ok {
			continue
		}
		allowed := make(map[string]struct{}, len(sel))
		for _, v := range sel {
			allowed[v] = struct{}{}
		}
		constraints = append(constraints, constraint{column: col, allowed: allowed})
	}
	if len(constraints) == 0 {
		return set
	}

	kept := lo.Filter(set.Records, func(r Record, _ int) bool {
		for _, c := range constraints {
			if _, ok := c.allowed[r.Value(c.column)]; !ok {
				return false
			}
		}
		return true
	})
	return RecordSet{Columns: set.Columns, Records: kept, Dropped: set.Dropped}
}

// FilterOptions returns AllValues followed by the sorted distinct non-empty
// values of field. An unbound field offers only AllValues.
func FilterOptions(ds Dataset, field Field) []string {
	col, ok := ds.Bindings.Column(field)
	if !ok {
		return []string{AllValues}
	}
	values := lo.Compact(lo.Uniq(lo.Map(ds.Set.Records, func(r Record, _ int) string {
		return r.Value(col)
	})))
	sort.Strings(values)
	return append([]string{AllValues}, values...)
}

// DefaultSelection is the selection a filter starts with.
func DefaultSelection() Selection {
	return Selection{AllValues}
}
