package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// View identifiers, in display order.
const (
	ViewPlanningGroup = "grupo-planejamento"
	ViewProcess       = "processo"
	ViewOrderType     = "tipo-ordem"
	ViewTopSite       = "top-local"
	ViewTopEquipment  = "top-equipamento"
	ViewTopOrders     = "top-ordens"
)

const subtotalLabel = "Subtotal de Gastos (Grupos e Tipos Selecionados)"

// FilterFields are the fields offered as dashboard filters.
var FilterFields = []Field{FieldPlanningGroup, FieldOrderType}

// Options tunes BuildDashboard.
type Options struct {
	TopN          int
	ReportDropped bool
}

// BuildDashboard filters the dataset with selections and computes every
// view from scratch. Views whose columns are missing are returned disabled
// with a warning; they never fail the dashboard.
func BuildDashboard(ds Dataset, selections Selections, opts Options) Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	filtered := Filter(ds.Set, ds.Bindings, selections)
	records := filtered.Records

	d := Dashboard{
		Source:        ds.Source,
		Records:       ds.Set.Len(),
		Filtered:      len(records),
		Dropped:       ds.Set.Dropped,
		SubtotalLabel: subtotalLabel,
		Notices: []Notice{{
			Level:   NoticeSuccess,
			Message: fmt.Sprintf("Base de dados '%s' carregada com sucesso!", ds.Source),
		}},
	}
	if opts.ReportDropped && ds.Set.Dropped > 0 {
		d.Notices = append(d.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("%d linha(s) sem valor numérico em '%s' foram descartadas.", ds.Set.Dropped, ds.Schema.Label(FieldCost)),
		})
	}
	if _, ok := ds.Bindings.Column(FieldCost); ok {
		d.Subtotal = Total(records)
		d.SubtotalDisplay = FormatCurrency(d.Subtotal)
	} else {
		d.Notices = append(d.Notices, missingNotice(ds.Schema, FieldCost))
	}

	for _, f := range FilterFields {
		sel, ok := selections[f]
		if !ok {
			sel = DefaultSelection()
		}
		d.Filters = append(d.Filters, FilterState{
			Field:    f,
			Label:    ds.Schema.Label(f),
			Options:  FilterOptions(ds, f),
			Selected: sel,
		})
	}

	d.Views = []View{
		planningGroupView(ds, records),
		processView(ds, records),
		orderTypeView(ds, records),
		topView(ds, records, opts.TopN, ViewTopSite, "Por Local de Instalação", FieldSite),
		topView(ds, records, opts.TopN, ViewTopEquipment, "Por Equipamento", FieldEquipment),
		topOrdersView(ds, records, opts.TopN),
	}
	return d
}

func planningGroupView(ds Dataset, records []Record) View {
	v := View{ID: ViewPlanningGroup, Title: "Custos por Grupo de Planejamento"}
	cols, err := ds.Bindings.Require(ds.Schema, FieldCost, FieldPlanningGroup)
	if err != nil {
		return disable(v, err)
	}
	v.Chart = &Chart{
		Kind:          ChartBar,
		CategoryLabel: ds.Schema.Label(FieldPlanningGroup),
		ValueLabel:    ValueHeader,
		Points:        sumPoints(SumAscending(records, cols[1])),
	}
	return v
}

func processView(ds Dataset, records []Record) View {
	v := View{ID: ViewProcess, Title: "Distribuição de Custos por Processo"}
	cols, err := ds.Bindings.Require(ds.Schema, FieldCost, FieldProcess)
	if err != nil {
		return disable(v, err)
	}
	v.Chart = &Chart{
		Kind:          ChartPie,
		CategoryLabel: ds.Schema.Label(FieldProcess),
		ValueLabel:    ValueHeader,
		Points:        sumPoints(SumByCategory(records, cols[1])),
	}
	return v
}

func orderTypeView(ds Dataset, records []Record) View {
	v := View{ID: ViewOrderType, Title: "Distribuição por Tipo de Ordem"}
	cols, err := ds.Bindings.Require(ds.Schema, FieldOrderType)
	if err != nil {
		return disable(v, err)
	}
	groups := CountByCategory(records, cols[0])
	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label:   g.Key(),
			Value:   decimal.NewFromInt(int64(g.Count)),
			Display: strconv.Itoa(g.Count),
		})
	}
	v.Chart = &Chart{
		Kind:          ChartPie,
		CategoryLabel: "Tipo de Ordem",
		ValueLabel:    "Quantidade",
		Points:        points,
	}
	return v
}

func topView(ds Dataset, records []Record, n int, id, title string, field Field) View {
	v := View{ID: id, Title: title}
	cols, err := ds.Bindings.Require(ds.Schema, FieldCost, field)
	if err != nil {
		return disable(v, err)
	}
	table := BuildRankedTable(TopN(records, n, cols[1]), []string{ds.Schema.Label(field)}, ValueHeader)
	v.Table = &table
	return v
}

// topOrdersView ranks orders by number and header together, falling back
// to whichever of the two exists.
func topOrdersView(ds Dataset, records []Record, n int) View {
	v := View{ID: ViewTopOrders, Title: "Top Ordens com Maiores Custos"}
	if _, err := ds.Bindings.Require(ds.Schema, FieldCost); err != nil {
		return disable(v, err)
	}
	numberCol, hasNumber := ds.Bindings.Column(FieldOrderNumber)
	headerCol, hasHeader := ds.Bindings.Column(FieldOrderHeader)
	numberLabel := ds.Schema.Label(FieldOrderNumber)
	headerLabel := ds.Schema.Label(FieldOrderHeader)

	var (
		columns []string
		labels  []string
	)
	switch {
	case hasNumber && hasHeader:
		columns, labels = []string{numberCol, headerCol}, []string{numberLabel, headerLabel}
	case hasNumber:
		columns, labels = []string{numberCol}, []string{numberLabel}
		v.Notices = append(v.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("Exibindo apenas '%s' porque a coluna de cabeçalho não foi encontrada.", numberLabel),
		})
	case hasHeader:
		columns, labels = []string{headerCol}, []string{headerLabel}
		v.Notices = append(v.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("Exibindo apenas '%s' porque a coluna '%s' não foi encontrada.", headerLabel, numberLabel),
		})
	default:
		v.Missing = []Field{FieldOrderNumber, FieldOrderHeader}
		v.Notices = append(v.Notices, Notice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("Nem '%s' nem '%s' foram encontrados na base de dados.", numberLabel, headerLabel),
		})
		return v
	}
	table := BuildRankedTable(TopN(records, n, columns...), labels, ValueHeader)
	v.Table = &table
	return v
}

func sumPoints(groups []AggregateRow) []ChartPoint {
	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{Label: g.Key(), Value: g.Sum, Display: FormatCurrency(g.Sum)})
	}
	return points
}

func disable(v View, err error) View {
	var fe *FieldUnresolvedError
	if errors.As(err, &fe) {
		v.Missing = append(v.Missing, fe.Field)
	}
	v.Notices = append(v.Notices, Notice{Level: NoticeWarning, Message: err.Error()})
	return v
}

func missingNotice(schema Schema, f Field) Notice {
	err := &FieldUnresolvedError{Field: f, Variants: schema.Variants(f)}
	return Notice{Level: NoticeWarning, Message: err.Error()}
}
