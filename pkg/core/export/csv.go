// Package export writes the workbook to CSV and XLSX and reads CSV back.
package export

import (
	"fmt"
	"io"
	"strings"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/models"

	"github.com/gocarina/gocsv"
)

// FileName returns the download name for a ticker, e.g. "IBM_financials.csv".
func FileName(ticker, ext string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "financials." + ext
	}
	return ticker + "_financials." + ext
}

// WriteCSV writes a header row of field names in record order followed by one row per year.
func WriteCSV(w io.Writer, years []models.FinancialYear) error {
	rows := years
	if rows == nil {
		rows = []models.FinancialYear{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return apperrors.Wrap(err, "failed to write csv")
	}
	return nil
}

// csvRow mirrors models.FinancialYear with raw cells so that hand-edited files
// with blanks or text in numeric columns still load.
type csvRow struct {
	Year      string `csv:"year"`
	Revenue   string `csv:"revenue"`
	EBITDA    string `csv:"ebitda"`
	PAT       string `csv:"pat"`
	OCF       string `csv:"ocf"`
	FCF       string `csv:"fcf"`
	AR        string `csv:"ar"`
	Cash      string `csv:"cash"`
	Equity    string `csv:"equity"`
	Debt      string `csv:"debt"`
	InvAdv    string `csv:"invAdv"`
	Dividend  string `csv:"dividend"`
	Inventory string `csv:"inventory"`
	Payables  string `csv:"payables"`
}

func (r csvRow) year() models.FinancialYear {
	n := models.CoerceNumber
	return models.FinancialYear{
		Year:      strings.TrimSpace(r.Year),
		Revenue:   n(r.Revenue),
		EBITDA:    n(r.EBITDA),
		PAT:       n(r.PAT),
		OCF:       n(r.OCF),
		FCF:       n(r.FCF),
		AR:        n(r.AR),
		Cash:      n(r.Cash),
		Equity:    n(r.Equity),
		Debt:      n(r.Debt),
		InvAdv:    n(r.InvAdv),
		Dividend:  n(r.Dividend),
		Inventory: n(r.Inventory),
		Payables:  n(r.Payables),
	}
}

// ReadCSV parses a file produced by WriteCSV. At most models.YearWindow rows are accepted.
// Numeric cells that do not parse ("", "None", "abc") are read as 0.
func ReadCSV(r io.Reader) ([]models.FinancialYear, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidWorkbook, err)
	}
	if len(rows) > models.YearWindow {
		return nil, fmt.Errorf("%w: %d rows, at most %d allowed", apperrors.ErrInvalidWorkbook, len(rows), models.YearWindow)
	}

	years := make([]models.FinancialYear, 0, len(rows))
	for _, row := range rows {
		years = append(years, row.year())
	}
	return years, nil
}
