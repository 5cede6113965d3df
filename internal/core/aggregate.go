package core

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultTopN is the size of every ranking.
const DefaultTopN = 10

// AggregateRow is one group of a grouping: its key values, the summed cost
// and the number of records.
type AggregateRow struct {
	Keys  []string
	Sum   decimal.Decimal
	Count int
}

// Key joins the key values for display.
func (a AggregateRow) Key() string {
	return strings.Join(a.Keys, " / ")
}

// RankedRow is an AggregateRow with its 1-based position.
type RankedRow struct {
	Position int
	AggregateRow
}

// GroupBy partitions records on the exact combination of values of the
// given columns. Groups come back in the order their key was first seen;
// every record lands in exactly one group.
func GroupBy(records []Record, columns ...string) []AggregateRow {
	index := make(map[string]int)
	var groups []AggregateRow
	for _, r := range records {
		keys := make([]string, len(columns))
		for i, c := range columns {
			keys[i] = r.Value(c)
		}
		id := strings.Join(keys, "\x1f")
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, AggregateRow{Keys: keys, Sum: decimal.Zero})
		}
		groups[i].Sum = groups[i].Sum.Add(r.Cost)
		groups[i].Count++
	}
	return groups
}

// SumAscending sums cost per value of column, smallest sum first.
func SumAscending(records []Record, column string) []AggregateRow {
	groups := GroupBy(records, column)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sum.LessThan(groups[j].Sum)
	})
	return groups
}

// SumByCategory sums cost per value of column, in first-seen order.
func SumByCategory(records []Record, column string) []AggregateRow {
	return GroupBy(records, column)
}

// CountByCategory counts records per value of column, largest count first.
func CountByCategory(records []Record, column string) []AggregateRow {
	groups := GroupBy(records, column)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

// TopN returns the n groups with the largest summed cost, ranked from 1.
// Ties keep the order in which their keys were first seen. Fewer than n
// groups yields all of them.
func TopN(records []Record, n int, columns ...string) []RankedRow {
	groups := GroupBy(records, columns...)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sum.GreaterThan(groups[j].Sum)
	})
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	return lo.Map(groups, func(g AggregateRow, i int) RankedRow {
		return RankedRow{Position: i + 1, AggregateRow: g}
	})
}

// Total sums the cost of every record.
func Total(records []Record) decimal.Decimal {
	return lo.Reduce(records, func(acc decimal.Decimal, r Record, _ int) decimal.Decimal {
		return acc.Add(r.Cost)
	}, decimal.Zero)
}
