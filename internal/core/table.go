package core

// ValueHeader labels the formatted total column of ranked tables.
const ValueHeader = "Total R$"

// BuildRankedTable puts the position column first, then one column per key
// label, then the formatted value. Labels only rename for display; the
// rows keep the original key values.
func BuildRankedTable(rows []RankedRow, keyLabels []string, valueLabel string) RankedTable {
	headers := make([]string, 0, len(keyLabels)+2)
	headers = append(headers, PositionHeader)
	headers = append(headers, keyLabels...)
	headers = append(headers, valueLabel)

	out := make([]TableRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, TableRow{
			Position: r.Position,
			Keys:     append([]string(nil), r.Keys...),
			Value:    r.Sum,
			Display:  FormatCurrency(r.Sum),
		})
	}
	return RankedTable{Headers: headers, Rows: out}
}
