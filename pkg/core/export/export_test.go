package export

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"financial_auditor/pkg/core/calc"
	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/models"

	"github.com/xuri/excelize/v2"
)

func fixture() []models.FinancialYear {
	years := models.Baseline()
	years[0].Revenue = 1000
	years[0].EBITDA = 200.5
	years[1].Revenue = 1200
	years[1].Debt = 500000
	years[2].FCF = -75.25
	years[4].Payables = 1e9
	return years
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, fixture()); err != nil {
		t.Fatal(err)
	}
	body := buf.String()
	header, _ := bufio.NewReader(strings.NewReader(body)).ReadString('\n')
	want := "year,revenue,ebitda,pat,ocf,fcf,ar,cash,equity,debt,invAdv,dividend,inventory,payables"
	if strings.TrimSpace(header) != want {
		t.Errorf("expected header %q, got %q", want, header)
	}
	if lines := strings.Count(body, "\n"); lines != 6 {
		t.Errorf("expected header + 5 rows, got %d lines", lines)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := fixture()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, in[i], out[i])
		}
	}
}

func TestReadCSVRejectsTooManyRows(t *testing.T) {
	years := append(fixture(), models.FinancialYear{Year: "FY26"})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, years); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(&buf); !apperrors.Is(err, apperrors.ErrInvalidWorkbook) {
		t.Errorf("expected ErrInvalidWorkbook, got %v", err)
	}
}

func TestReadCSVCoercesBadCells(t *testing.T) {
	body := "year,revenue,ebitda,pat,ocf,fcf,ar,cash,equity,debt,invAdv,dividend,inventory,payables\n" +
		"FY23,abc,None,,1.5, 2 ,0,0,0,0,0,0,0,NaN\n"
	out, err := ReadCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("expected bad cells to coerce, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out))
	}
	got := out[0]
	want := models.FinancialYear{Year: "FY23", OCF: 1.5, FCF: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(" ibm ", "csv"); got != "IBM_financials.csv" {
		t.Errorf("expected IBM_financials.csv, got %s", got)
	}
	if got := FileName("", "xlsx"); got != "financials.xlsx" {
		t.Errorf("expected financials.xlsx, got %s", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	years := fixture()
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, years, calc.Derive(years)); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(FinancialsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
	if rows[0][0] != "Year" || rows[0][1] != "Revenue" || rows[0][3] != "Net Profit (PAT)" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "FY21" || rows[1][1] != "1000" {
		t.Errorf("unexpected first row %v", rows[1])
	}

	metrics, err := f.GetRows(MetricsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 6 || metrics[0][1] != "EBITDA Margin %" {
		t.Errorf("unexpected metrics sheet %v", metrics)
	}
	if metrics[2][7] != "20" {
		t.Errorf("expected FY22 revenue YoY 20, got %q", metrics[2][7])
	}
}
