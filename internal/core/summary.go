package core

import "github.com/shopspring/decimal"

type (
	NoticeLevel string

	// Notice is a message shown next to a view or at the top of the
	// dashboard.
	Notice struct {
		Level   NoticeLevel `json:"level"`
		Message string      `json:"message"`
	}

	ChartKind string

	// ChartPoint is one category of a chart. Value is a sum for cost charts
	// and a count for count charts.
	ChartPoint struct {
		Label   string          `json:"label"`
		Value   decimal.Decimal `json:"value"`
		Display string          `json:"display"`
	}

	// Chart describes a renderable chart: axes and ordered points.
	Chart struct {
		Kind          ChartKind    `json:"kind"`
		CategoryLabel string       `json:"category_label"`
		ValueLabel    string       `json:"value_label"`
		Points        []ChartPoint `json:"points"`
	}

	// TableRow is a ranked row ready for display. Value keeps the number the
	// row was ranked by; Display is its formatted rendition.
	TableRow struct {
		Position int             `json:"position"`
		Keys     []string        `json:"keys"`
		Value    decimal.Decimal `json:"value"`
		Display  string          `json:"display"`
	}

	// RankedTable is an ordered table whose first header is the position.
	RankedTable struct {
		Headers []string   `json:"headers"`
		Rows    []TableRow `json:"rows"`
	}

	// View is one dashboard block. A disabled view has neither Chart nor
	// Table and carries a warning naming the missing column.
	View struct {
		ID      string       `json:"id"`
		Title   string       `json:"title"`
		Chart   *Chart       `json:"chart,omitempty"`
		Table   *RankedTable `json:"table,omitempty"`
		Notices []Notice     `json:"notices,omitempty"`
		Missing []Field      `json:"missing,omitempty"`
	}

	// FilterState is a filter field with its options and current selection.
	FilterState struct {
		Field    Field     `json:"field"`
		Label    string    `json:"label"`
		Options  []string  `json:"options"`
		Selected Selection `json:"selected"`
	}

	// Dashboard is the full output of one recomputation.
	Dashboard struct {
		Source          string          `json:"source"`
		Records         int             `json:"records"`
		Filtered        int             `json:"filtered"`
		Dropped         int             `json:"dropped"`
		SubtotalLabel   string          `json:"subtotal_label"`
		Subtotal        decimal.Decimal `json:"subtotal"`
		SubtotalDisplay string          `json:"subtotal_display"`
		Filters         []FilterState   `json:"filters"`
		Notices         []Notice        `json:"notices,omitempty"`
		Views           []View          `json:"views"`
	}
)

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeSuccess NoticeLevel = "success"

	ChartBar ChartKind = "bar"
	ChartPie ChartKind = "pie"
)

// PositionHeader is the label of the leftmost ranked table column.
const PositionHeader = "Posição"

// Enabled reports whether the view has something to render.
func (v View) Enabled() bool {
	return v.Chart != nil || v.Table != nil
}

// Warnings returns only the warning notices.
func (v View) Warnings() []Notice {
	var out []Notice
	for _, n := range v.Notices {
		if n.Level == NoticeWarning {
			out = append(out, n)
		}
	}
	return out
}

// View returns the view with the given id.
func (d Dashboard) View(id string) (View, bool) {
	for _, v := range d.Views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}
