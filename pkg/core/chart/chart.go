// Package chart shapes the workbook into the four dashboard chart datasets.
package chart

import "financial_auditor/pkg/models"

// Kind is the rendering hint for a chart.
type Kind string

const (
	KindLine       Kind = "line"
	KindBar        Kind = "bar"
	KindStackedBar Kind = "stacked_bar"
)

const millionsTickUnit = 1000000

// Series is one plotted field.
type Series struct {
	Key    string    `json:"key"`
	Name   string    `json:"name"`
	Color  string    `json:"color"`
	Values []float64 `json:"values"`
}

// Chart is a titled set of series sharing the year axis.
type Chart struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Kind   Kind     `json:"kind"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
	// TickUnit divides axis values for display (1e6 renders "M" ticks); 0 leaves them raw.
	TickUnit float64 `json:"tickUnit,omitempty"`
}

type seriesSpec struct {
	key, name, color string
}

type chartSpec struct {
	id, title string
	kind      Kind
	tickUnit  float64
	series    []seriesSpec
}

var dashboard = []chartSpec{
	{"revenue_ocf", "Revenue vs. Operating Cash Flow", KindLine, millionsTickUnit, []seriesSpec{
		{"revenue", "Revenue", "#3b82f6"},
		{"ocf", "Op. Cash Flow", "#22c55e"},
	}},
	{"equity_structure", "Equity Structure", KindBar, millionsTickUnit, []seriesSpec{
		{"equity", "Equity", "#8b5cf6"},
		{"debt", "Debt", "#ef4444"},
		{"cash", "Cash", "#10b981"},
	}},
	{"working_capital", "Working Capital Assets", KindStackedBar, 0, []seriesSpec{
		{"ar", "Receivables", "#f97316"},
		{"inventory", "Inventory", "#f59e0b"},
	}},
	{"profitability", "Profitability (Raw Values)", KindBar, 0, []seriesSpec{
		{"ebitda", "EBITDA", "#0ea5e9"},
		{"pat", "Net Profit", "#6366f1"},
	}},
}

// Plottable keeps years that carry revenue or equity; empty template rows are dropped.
func Plottable(years []models.FinancialYear) []models.FinancialYear {
	out := make([]models.FinancialYear, 0, len(years))
	for _, fy := range years {
		if fy.Revenue > 0 || fy.Equity > 0 {
			out = append(out, fy)
		}
	}
	return out
}

// Build returns the dashboard charts, or nil when no year is plottable.
func Build(years []models.FinancialYear) []Chart {
	data := Plottable(years)
	if len(data) == 0 {
		return nil
	}

	labels := make([]string, len(data))
	for i, fy := range data {
		labels[i] = fy.Year
	}

	charts := make([]Chart, 0, len(dashboard))
	for _, spec := range dashboard {
		c := Chart{
			ID:       spec.id,
			Title:    spec.title,
			Kind:     spec.kind,
			Labels:   labels,
			TickUnit: spec.tickUnit,
			Series:   make([]Series, 0, len(spec.series)),
		}
		for _, s := range spec.series {
			field, ok := models.FieldByKey(s.key)
			if !ok {
				continue
			}
			values := make([]float64, len(data))
			for i, fy := range data {
				values[i] = field.Value(fy)
			}
			c.Series = append(c.Series, Series{Key: s.key, Name: s.name, Color: s.color, Values: values})
		}
		charts = append(charts, c)
	}
	return charts
}
