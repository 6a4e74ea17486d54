package models

import (
	"math"
	"strconv"
	"strings"
)

// YearWindow is the number of fiscal years the workbook tracks.
const YearWindow = 5

// FinancialYear is the unified per-year record built from the three statements.
// All amounts are plain numbers; missing source values are stored as zero.
type FinancialYear struct {
	Year      string  `json:"year" csv:"year"`
	Revenue   float64 `json:"revenue" csv:"revenue"`
	EBITDA    float64 `json:"ebitda" csv:"ebitda"`
	PAT       float64 `json:"pat" csv:"pat"` // Net profit (profit after tax)
	OCF       float64 `json:"ocf" csv:"ocf"` // Operating cash flow
	FCF       float64 `json:"fcf" csv:"fcf"` // Free cash flow
	AR        float64 `json:"ar" csv:"ar"`   // Accounts receivable
	Cash      float64 `json:"cash" csv:"cash"`
	Equity    float64 `json:"equity" csv:"equity"`
	Debt      float64 `json:"debt" csv:"debt"`
	InvAdv    float64 `json:"invAdv" csv:"invAdv"` // Investments / advances
	Dividend  float64 `json:"dividend" csv:"dividend"`
	Inventory float64 `json:"inventory" csv:"inventory"`
	Payables  float64 `json:"payables" csv:"payables"`
}

// CalculatedMetrics holds the ratios derived from one FinancialYear.
type CalculatedMetrics struct {
	Year            string  `json:"year"`
	EBITDAMargin    float64 `json:"ebitdaMargin"`    // %
	PATMargin       float64 `json:"patMargin"`       // %
	CashConversion  float64 `json:"cashConversion"`  // ratio
	DSO             float64 `json:"dso"`             // days
	EquityGrowth    float64 `json:"equityGrowth"`    // %
	CashEquityRatio float64 `json:"cashEquityRatio"` // ratio
	RevenueYoY      float64 `json:"revenueYoy"`      // %
}

// Field describes one editable numeric column of a FinancialYear.
type Field struct {
	Key   string
	Label string
	get   func(*FinancialYear) float64
	set   func(*FinancialYear, float64)
}

// Fields lists the numeric columns in record order.
var Fields = []Field{
	{"revenue", "Revenue", func(f *FinancialYear) float64 { return f.Revenue }, func(f *FinancialYear, v float64) { f.Revenue = v }},
	{"ebitda", "EBITDA", func(f *FinancialYear) float64 { return f.EBITDA }, func(f *FinancialYear, v float64) { f.EBITDA = v }},
	{"pat", "Net Profit (PAT)", func(f *FinancialYear) float64 { return f.PAT }, func(f *FinancialYear, v float64) { f.PAT = v }},
	{"ocf", "Op. Cash Flow", func(f *FinancialYear) float64 { return f.OCF }, func(f *FinancialYear, v float64) { f.OCF = v }},
	{"fcf", "Free Cash Flow", func(f *FinancialYear) float64 { return f.FCF }, func(f *FinancialYear, v float64) { f.FCF = v }},
	{"ar", "Receivables (AR)", func(f *FinancialYear) float64 { return f.AR }, func(f *FinancialYear, v float64) { f.AR = v }},
	{"cash", "Cash Balance", func(f *FinancialYear) float64 { return f.Cash }, func(f *FinancialYear, v float64) { f.Cash = v }},
	{"equity", "Equity", func(f *FinancialYear) float64 { return f.Equity }, func(f *FinancialYear, v float64) { f.Equity = v }},
	{"debt", "Total Debt", func(f *FinancialYear) float64 { return f.Debt }, func(f *FinancialYear, v float64) { f.Debt = v }},
	{"invAdv", "Investments", func(f *FinancialYear) float64 { return f.InvAdv }, func(f *FinancialYear, v float64) { f.InvAdv = v }},
	{"dividend", "Dividends", func(f *FinancialYear) float64 { return f.Dividend }, func(f *FinancialYear, v float64) { f.Dividend = v }},
	{"inventory", "Inventory", func(f *FinancialYear) float64 { return f.Inventory }, func(f *FinancialYear, v float64) { f.Inventory = v }},
	{"payables", "Payables", func(f *FinancialYear) float64 { return f.Payables }, func(f *FinancialYear, v float64) { f.Payables = v }},
}

// FieldByKey looks up a numeric column by its JSON key.
func FieldByKey(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Value returns the field's value on the record.
func (f Field) Value(fy FinancialYear) float64 {
	return f.get(&fy)
}

// With returns a copy of the record with the given field replaced.
func (fy FinancialYear) With(key string, value float64) (FinancialYear, bool) {
	field, ok := FieldByKey(key)
	if !ok {
		return fy, false
	}
	field.set(&fy, value)
	return fy, true
}

// Baseline returns the empty FY21..FY25 template the workbook starts from.
func Baseline() []FinancialYear {
	return []FinancialYear{
		{Year: "FY21"},
		{Year: "FY22"},
		{Year: "FY23"},
		{Year: "FY24"},
		{Year: "FY25"},
	}
}

// PadToBaseline lays fetched records over the baseline template by position.
// Positions the fetch did not cover keep their template rows, and a blank
// label keeps the template label for its position.
func PadToBaseline(fetched []FinancialYear) []FinancialYear {
	merged := Baseline()
	for i, item := range fetched {
		if i >= YearWindow {
			break
		}
		item.Year = strings.TrimSpace(item.Year)
		if item.Year == "" {
			item.Year = merged[i].Year
		}
		merged[i] = item
	}
	return merged
}

// DuplicateYear reports the first year label that appears more than once.
func DuplicateYear(years []FinancialYear) (string, bool) {
	seen := make(map[string]struct{}, len(years))
	for _, y := range years {
		if _, ok := seen[y.Year]; ok {
			return y.Year, true
		}
		seen[y.Year] = struct{}{}
	}
	return "", false
}

// CoerceNumber parses a user or provider supplied number.
// Anything unparseable ("", "None", "abc", NaN, Inf) becomes 0.
func CoerceNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" {
		return 0
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
