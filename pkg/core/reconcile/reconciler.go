// Package reconcile merges the separately fetched income statement, balance sheet and
// cash flow reports into one FinancialYear per fiscal year.
//
// Each report type owns a fixed subset of fields and only ever overwrites those, so the
// order of the three passes does not matter. Missing values become zero. The output is
// sorted ascending by year and trimmed to the most recent five years; padding shorter
// histories is left to the caller.
package reconcile

import (
	"sort"
	"strconv"
	"strings"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/models"

	"github.com/rs/zerolog"
)

// MaxReportsPerStatement caps how many entries of each collection are considered.
const MaxReportsPerStatement = 5

// Reconciler joins the three statement collections by fiscal year.
type Reconciler struct {
	logger zerolog.Logger
}

// NewReconciler creates a Reconciler. Skipped entries are logged at debug level.
func NewReconciler(logger zerolog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile is a convenience wrapper that discards skip diagnostics.
func Reconcile(income, balance, cashflow []models.RawReport) ([]models.FinancialYear, error) {
	return NewReconciler(zerolog.Nop()).Reconcile(income, balance, cashflow)
}

// yearEntry is a partially built record plus its numeric year for sorting.
type yearEntry struct {
	year   int
	record models.FinancialYear
}

// timeline is an insertion-ordered year index.
type timeline struct {
	index   map[string]int
	entries []yearEntry
}

func newTimeline() *timeline {
	return &timeline{index: make(map[string]int)}
}

// entry returns the record for label, creating it if needed.
func (t *timeline) entry(label string, year int) *models.FinancialYear {
	if i, ok := t.index[label]; ok {
		return &t.entries[i].record
	}
	t.index[label] = len(t.entries)
	t.entries = append(t.entries, yearEntry{year: year, record: models.FinancialYear{Year: label}})
	return &t.entries[len(t.entries)-1].record
}

// Reconcile merges the three collections. It fails with ErrNoDataFound only when all
// three are empty; individual entries without a usable fiscal year are skipped.
func (r *Reconciler) Reconcile(income, balance, cashflow []models.RawReport) ([]models.FinancialYear, error) {
	if len(income) == 0 && len(balance) == 0 && len(cashflow) == 0 {
		return nil, apperrors.ErrNoDataFound
	}

	tl := newTimeline()
	r.apply(tl, models.IncomeStatement, income, applyIncome)
	r.apply(tl, models.BalanceSheet, balance, applyBalance)
	r.apply(tl, models.CashFlow, cashflow, applyCashFlow)

	sort.SliceStable(tl.entries, func(i, j int) bool {
		return tl.entries[i].year < tl.entries[j].year
	})

	start := 0
	if len(tl.entries) > models.YearWindow {
		start = len(tl.entries) - models.YearWindow
	}

	out := make([]models.FinancialYear, 0, len(tl.entries)-start)
	for _, e := range tl.entries[start:] {
		out = append(out, e.record)
	}
	return out, nil
}

func (r *Reconciler) apply(tl *timeline, kind models.StatementType, reports []models.RawReport, fill func(*models.FinancialYear, models.RawReport)) {
	if len(reports) > MaxReportsPerStatement {
		reports = reports[:MaxReportsPerStatement]
	}
	for i, report := range reports {
		label, year, ok := fiscalYear(report)
		if !ok {
			r.logger.Debug().
				Err(apperrors.ErrMalformedEntry).
				Str("statement", string(kind)).
				Int("position", i).
				Str("fiscal_date_ending", report.String("fiscalDateEnding")).
				Msg("Skipping report without fiscal year")
			continue
		}
		fill(tl.entry(label, year), report)
	}
}

// fiscalYear extracts the four-digit year prefix of fiscalDateEnding ("2023-12-31" -> "2023").
func fiscalYear(report models.RawReport) (string, int, bool) {
	date := strings.TrimSpace(report.String("fiscalDateEnding"))
	prefix, _, _ := strings.Cut(date, "-")
	if len(prefix) != 4 {
		return "", 0, false
	}
	year, err := strconv.Atoi(prefix)
	if err != nil || year < 0 {
		return "", 0, false
	}
	return prefix, year, true
}

func applyIncome(fy *models.FinancialYear, r models.RawReport) {
	fy.Revenue = r.Number("totalRevenue")
	// The income statement carries no EBITDA line.
	fy.EBITDA = r.Number("operatingIncome") + r.Number("depreciationAndAmortization")
	fy.PAT = r.Number("netIncome")
}

func applyBalance(fy *models.FinancialYear, r models.RawReport) {
	fy.Equity = r.Number("totalShareholderEquity")
	fy.Debt = r.Number("shortTermDebt") + r.Number("longTermDebtNoncurrent")
	if fy.Debt == 0 {
		// Rough stand-in when the provider omits debt lines: half of total liabilities.
		fy.Debt = r.Number("totalLiabilities") * 0.5
	}
	fy.AR = r.Number("currentNetReceivables")
	fy.Inventory = r.Number("inventory")
	fy.Cash = r.Number("cashAndCashEquivalentsAtCarryingValue")
	fy.Payables = r.Number("currentAccountsPayable")
	fy.InvAdv = r.Number("shortTermInvestments") + r.Number("longTermInvestments")
}

func applyCashFlow(fy *models.FinancialYear, r models.RawReport) {
	fy.OCF = r.Number("operatingCashflow")
	fy.FCF = fy.OCF - r.Number("capitalExpenditures")
	fy.Dividend = r.Number("dividendPayout")
}
