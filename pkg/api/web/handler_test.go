package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"financial_auditor/pkg/core/workbook"
	"financial_auditor/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func renderPage(t *testing.T, wb *workbook.Workbook) *goquery.Document {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(wb).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestWorkbenchTemplate(t *testing.T) {
	doc := renderPage(t, workbook.New(zerolog.Nop()))

	if n := doc.Find("#financials tbody tr").Length(); n != len(models.Fields) {
		t.Errorf("expected %d editable rows, got %d", len(models.Fields), n)
	}
	if n := doc.Find("#financials input.cell").Length(); n != len(models.Fields)*models.YearWindow {
		t.Errorf("expected %d inputs, got %d", len(models.Fields)*models.YearWindow, n)
	}
	if got := doc.Find("#financials thead th").Eq(1).Text(); got != "FY21" {
		t.Errorf("expected FY21 header, got %q", got)
	}
	if v, _ := doc.Find(`input[data-index="0"][data-field="revenue"]`).Attr("value"); v != "" {
		t.Errorf("zero should render blank, got %q", v)
	}
	if n := doc.Find("#metrics tbody tr").Length(); n != 7 {
		t.Errorf("expected 7 metric rows, got %d", n)
	}
	if doc.Find("#charts p").Length() != 1 {
		t.Error("expected empty-chart hint for the template")
	}
}

func TestWorkbenchShowsData(t *testing.T) {
	wb := workbook.New(zerolog.Nop())
	wb.ApplyFetch(wb.BeginFetch("IBM"), []models.FinancialYear{
		{Year: "2023", Revenue: 1000, EBITDA: 200, AR: 100, Equity: 400},
	})
	doc := renderPage(t, wb)

	if v, _ := doc.Find(`input[data-index="0"][data-field="revenue"]`).Attr("value"); v != "1000" {
		t.Errorf("expected revenue 1000, got %q", v)
	}
	row := doc.Find(`#metrics tr[data-metric="ebitdaMargin"] td`)
	if row.Eq(1).Text() != "20.0%" {
		t.Errorf("expected 20.0%%, got %q", row.Eq(1).Text())
	}
	if dso := doc.Find(`#metrics tr[data-metric="dso"] td`).Eq(1).Text(); dso != "37d" {
		t.Errorf("expected 37d, got %q", dso)
	}
	if doc.Find("title").Text() != "IBM · Financial Auditor" {
		t.Errorf("unexpected title %q", doc.Find("title").Text())
	}

	raw, _ := doc.Find("#charts").Attr("data-charts")
	var charts []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &charts); err != nil || len(charts) != 4 {
		t.Errorf("expected 4 charts in data attribute, got %v (%s)", err, raw)
	}
}
