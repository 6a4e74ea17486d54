package models

import (
	"encoding/json"
	"math"
)

// StatementType identifies one of the three annual reports pulled from the data service.
type StatementType string

const (
	IncomeStatement StatementType = "INCOME_STATEMENT"
	BalanceSheet    StatementType = "BALANCE_SHEET"
	CashFlow        StatementType = "CASH_FLOW"
)

// StatementTypes lists the reports in the order they are reconciled.
var StatementTypes = []StatementType{IncomeStatement, BalanceSheet, CashFlow}

// RawReport is one loosely typed yearly report as delivered by the data service.
// Values are usually numeric strings, occasionally "None" or absent.
type RawReport map[string]interface{}

// String returns the value under key as a string, or "" when absent or not a string.
func (r RawReport) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Number returns the value under key coerced to a float. Unparseable values are 0.
func (r RawReport) Number(key string) float64 {
	switch v := r[key].(type) {
	case string:
		return CoerceNumber(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case json.Number:
		return CoerceNumber(v.String())
	default:
		return 0
	}
}

// Statements bundles the three report collections for one ticker, newest period first.
type Statements struct {
	Income   []RawReport `json:"income"`
	Balance  []RawReport `json:"balance"`
	CashFlow []RawReport `json:"cash_flow"`
}

// Empty reports whether all three collections are empty.
func (s Statements) Empty() bool {
	return len(s.Income) == 0 && len(s.Balance) == 0 && len(s.CashFlow) == 0
}
