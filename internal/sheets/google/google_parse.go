package google

import (
	"fmt"
	"strconv"
	"strings"

	"custos/internal/core"
	ports "custos/internal/sheets"
)

// parseValues converts a values matrix (as returned by the Sheets API with
// UNFORMATTED_VALUE) into a raw table whose first row is the header.
func parseValues(values [][]interface{}) (core.RawTable, error) {
	if len(values) == 0 {
		return core.RawTable{}, core.ErrEmptySource
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return core.RawTable{
		Header:      header,
		Rows:        rows,
		Fingerprint: ports.Fingerprint(header, rows),
	}, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders numbers without exponent so that order numbers such as
// 4001234 survive as "4001234".
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
