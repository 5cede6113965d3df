package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"custos/internal/core"
)

// filterParams maps query parameter names to filter fields.
var filterParams = []struct {
	Param string
	Field core.Field
}{
	{"grupo", core.FieldPlanningGroup},
	{"tipo", core.FieldOrderType},
}

// parseSelections reads repeated grupo and tipo parameters. An absent
// parameter selects everything; a present one with only blank values is an
// empty selection.
func parseSelections(q url.Values) core.Selections {
	sel := core.Selections{}
	for _, fp := range filterParams {
		raw, ok := q[fp.Param]
		if !ok {
			continue
		}
		values := core.Selection{}
		for _, v := range raw {
			if v = sanitizeInput(v); v != "" {
				values = append(values, v)
			}
		}
		sel[fp.Field] = values
	}
	return sel
}

// paramFor returns the query parameter name of a filter field.
func paramFor(f core.Field) string {
	for _, fp := range filterParams {
		if fp.Field == f {
			return fp.Param
		}
	}
	return string(f)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// apiError is the JSON body of every API error.
type apiError struct {
	Error   string `json:"error"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Path: r.URL.Path, Message: message})
}

var templateFuncs = template.FuncMap{
	"param": paramFor,
	"selected": func(sel core.Selection, v string) bool {
		for _, s := range sel {
			if s == v {
				return true
			}
		}
		return false
	},
	// share returns the percent width of v relative to the largest point.
	"share": func(points []core.ChartPoint, i int) int {
		if i < 0 || i >= len(points) {
			return 0
		}
		top := points[0].Value
		for _, p := range points[1:] {
			if p.Value.GreaterThan(top) {
				top = p.Value
			}
		}
		if !top.IsPositive() || !points[i].Value.IsPositive() {
			return 0
		}
		pct := int(points[i].Value.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
		if pct < 1 {
			pct = 1
		}
		return pct
	},
}
