package calc

import (
	"math"

	"financial_auditor/pkg/models"
)

// =============================================================================
// DERIVED METRICS
// =============================================================================

// DaysPerYear is the day count used for days-sales-outstanding.
const DaysPerYear = 365

// Derive computes the seven audit ratios for every record, in input order.
// Growth ratios compare against the preceding record; the first record has none.
// Any ratio whose denominator is zero, or whose value overflows, is reported as exactly 0.
func Derive(years []models.FinancialYear) []models.CalculatedMetrics {
	out := make([]models.CalculatedMetrics, len(years))
	for i, fy := range years {
		var prev *models.FinancialYear
		if i > 0 {
			prev = &years[i-1]
		}
		out[i] = deriveYear(fy, prev)
	}
	return out
}

func deriveYear(fy models.FinancialYear, prev *models.FinancialYear) models.CalculatedMetrics {
	m := models.CalculatedMetrics{
		Year:            fy.Year,
		EBITDAMargin:    finite(safeDiv(fy.EBITDA, fy.Revenue) * 100),
		PATMargin:       finite(safeDiv(fy.PAT, fy.Revenue) * 100),
		CashConversion:  safeDiv(fy.OCF, fy.EBITDA),
		DSO:             finite(safeDiv(fy.AR, fy.Revenue) * DaysPerYear),
		CashEquityRatio: safeDiv(fy.Cash, fy.Equity),
	}
	if prev != nil {
		m.EquityGrowth = finite(GrowthRate(fy.Equity, prev.Equity) * 100)
		m.RevenueYoY = finite(GrowthRate(fy.Revenue, prev.Revenue) * 100)
	}
	return m
}

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return finite(numerator / denominator)
}

// finite maps NaN and ±Inf to 0 so every reported ratio stays JSON encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// GrowthRate returns (current-prior)/prior, or 0 when prior is 0.
// The denominator is signed: a negative base flips the direction.
func GrowthRate(current, prior float64) float64 {
	return safeDiv(current-prior, prior)
}
