package utils

import (
	"strconv"
	"strings"

	"financial_auditor/pkg/models"

	"github.com/shopspring/decimal"
)

// FormatPercent renders a percentage with one decimal place: 20 -> "20.0%".
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

// FormatRatio renders a multiple with two decimal places: 0.75 -> "0.75x".
func FormatRatio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "x"
}

// FormatDays renders a day count with no decimals: 36.5 -> "37d".
func FormatDays(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(0) + "d"
}

// FormatAmount renders a raw amount with thousands separators and no decimals.
func FormatAmount(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatInput renders an editor cell value; zero shows as blank.
func FormatInput(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MetricRow is one derived metric rendered across all years.
type MetricRow struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

type metricColumn struct {
	key, label string
	get        func(models.CalculatedMetrics) float64
	format     func(float64) string
}

var metricColumns = []metricColumn{
	{"ebitdaMargin", "EBITDA Margin", func(m models.CalculatedMetrics) float64 { return m.EBITDAMargin }, FormatPercent},
	{"patMargin", "PAT Margin", func(m models.CalculatedMetrics) float64 { return m.PATMargin }, FormatPercent},
	{"cashConversion", "Cash Conversion", func(m models.CalculatedMetrics) float64 { return m.CashConversion }, FormatRatio},
	{"dso", "DSO", func(m models.CalculatedMetrics) float64 { return m.DSO }, FormatDays},
	{"equityGrowth", "Equity Growth", func(m models.CalculatedMetrics) float64 { return m.EquityGrowth }, FormatPercent},
	{"cashEquityRatio", "Cash/Equity", func(m models.CalculatedMetrics) float64 { return m.CashEquityRatio }, FormatRatio},
	{"revenueYoy", "Revenue YoY", func(m models.CalculatedMetrics) float64 { return m.RevenueYoY }, FormatPercent},
}

// MetricRows lays the metrics out one row per ratio, one cell per year.
func MetricRows(metrics []models.CalculatedMetrics) []MetricRow {
	rows := make([]MetricRow, 0, len(metricColumns))
	for _, col := range metricColumns {
		cells := make([]string, len(metrics))
		for i, m := range metrics {
			cells[i] = col.format(col.get(m))
		}
		rows = append(rows, MetricRow{Key: col.key, Label: col.label, Cells: cells})
	}
	return rows
}
