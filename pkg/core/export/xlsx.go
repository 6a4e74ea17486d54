package export

import (
	"io"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	FinancialsSheet = "Financials"
	MetricsSheet    = "Metrics"
)

// MetricsHeader labels the Metrics sheet columns.
var MetricsHeader = []string{
	"Year", "EBITDA Margin %", "PAT Margin %", "Cash Conversion", "DSO (days)",
	"Equity Growth %", "Cash / Equity", "Revenue YoY %",
}

// WriteXLSX writes a workbook with the raw financials on one sheet and the derived metrics on another.
func WriteXLSX(w io.Writer, years []models.FinancialYear, metrics []models.CalculatedMetrics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FinancialsSheet); err != nil {
		return apperrors.Wrap(err, "failed to name financials sheet")
	}
	if _, err := f.NewSheet(MetricsSheet); err != nil {
		return apperrors.Wrap(err, "failed to create metrics sheet")
	}

	header := make([]interface{}, 0, len(models.Fields)+1)
	header = append(header, "Year")
	for _, field := range models.Fields {
		header = append(header, field.Label)
	}
	if err := setRow(f, FinancialsSheet, 1, header); err != nil {
		return err
	}
	for i, fy := range years {
		row := make([]interface{}, 0, len(header))
		row = append(row, fy.Year)
		for _, field := range models.Fields {
			row = append(row, field.Value(fy))
		}
		if err := setRow(f, FinancialsSheet, i+2, row); err != nil {
			return err
		}
	}

	mh := make([]interface{}, len(MetricsHeader))
	for i, h := range MetricsHeader {
		mh[i] = h
	}
	if err := setRow(f, MetricsSheet, 1, mh); err != nil {
		return err
	}
	for i, m := range metrics {
		row := []interface{}{
			m.Year, m.EBITDAMargin, m.PATMargin, m.CashConversion, m.DSO,
			m.EquityGrowth, m.CashEquityRatio, m.RevenueYoY,
		}
		if err := setRow(f, MetricsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return apperrors.Wrap(err, "failed to write xlsx")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return apperrors.Wrapf(err, "failed to write %s row %d", sheet, row)
	}
	return nil
}
