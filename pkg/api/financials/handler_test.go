package financials

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financial_auditor/pkg/api/middleware"
	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/export"
	"financial_auditor/pkg/core/ingest"
	"financial_auditor/pkg/core/workbook"
	"financial_auditor/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockIngester struct {
	ingestFn func(ctx context.Context, ticker string) (*ingest.IngestResult, error)
}

func (m *mockIngester) Ingest(ctx context.Context, ticker string) (*ingest.IngestResult, error) {
	return m.ingestFn(ctx, ticker)
}

func setupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h.Register(r.Group("/api"))
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stateBody struct {
	Ticker     string                     `json:"ticker"`
	Financials []models.FinancialYear     `json:"financials"`
	Metrics    []models.CalculatedMetrics `json:"metrics"`
	Source     string                     `json:"source"`
}

func parseState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()
	var body stateBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %s: %v", rec.Body.String(), err)
	}
	return body
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error.Code != code {
		t.Errorf("expected error code %s, got %s", code, body.Error.Code)
	}
}

func TestGetFinancialsTemplate(t *testing.T) {
	r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), nil))
	rec := doRequest(r, http.MethodGet, "/api/financials", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := parseState(t, rec)
	if len(body.Financials) != 5 || len(body.Metrics) != 5 || body.Source != "template" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestEditCell(t *testing.T) {
	r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), nil))

	t.Run("accepts numbers and strings", func(t *testing.T) {
		rec := doRequest(r, http.MethodPatch, "/api/financials/cell", `{"index":0,"field":"revenue","value":100}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		rec = doRequest(r, http.MethodPatch, "/api/financials/cell", `{"index":1,"field":"revenue","value":"150"}`)
		body := parseState(t, rec)
		if body.Financials[0].Revenue != 100 || body.Financials[1].Revenue != 150 {
			t.Errorf("unexpected financials %+v", body.Financials)
		}
		if body.Metrics[1].RevenueYoY != 50 {
			t.Errorf("expected metrics recomputed, got %+v", body.Metrics[1])
		}
	})

	t.Run("coerces garbage to zero", func(t *testing.T) {
		rec := doRequest(r, http.MethodPatch, "/api/financials/cell", `{"index":0,"field":"revenue","value":"abc"}`)
		if body := parseState(t, rec); body.Financials[0].Revenue != 0 {
			t.Errorf("expected 0, got %v", body.Financials[0].Revenue)
		}
	})

	t.Run("rejects unknown field", func(t *testing.T) {
		rec := doRequest(r, http.MethodPatch, "/api/financials/cell", `{"index":0,"field":"goodwill","value":"1"}`)
		assertErrorCode(t, rec, http.StatusBadRequest, middleware.CodeInvalidInput)
	})

	t.Run("rejects missing index", func(t *testing.T) {
		rec := doRequest(r, http.MethodPatch, "/api/financials/cell", `{"field":"revenue","value":"1"}`)
		assertErrorCode(t, rec, http.StatusBadRequest, middleware.CodeInvalidInput)
	})
}

func TestReplaceFinancials(t *testing.T) {
	r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), nil))

	rec := doRequest(r, http.MethodPut, "/api/financials", `{"financials":[{"year":"FY21","revenue":1000,"ebitda":200}]}`)
	body := parseState(t, rec)
	if body.Financials[0].Year != "FY21" || body.Metrics[0].EBITDAMargin != 20 {
		t.Errorf("unexpected body %+v", body)
	}

	six := `{"financials":[{},{},{},{},{},{}]}`
	assertErrorCode(t, doRequest(r, http.MethodPut, "/api/financials", six), http.StatusBadRequest, middleware.CodeInvalidInput)

	dup := `{"financials":[{"year":"FY22"},{"year":"FY22"}]}`
	assertErrorCode(t, doRequest(r, http.MethodPut, "/api/financials", dup), http.StatusBadRequest, middleware.CodeInvalidInput)
}

func TestFetch(t *testing.T) {
	t.Run("installs reconciled years", func(t *testing.T) {
		ing := &mockIngester{ingestFn: func(_ context.Context, ticker string) (*ingest.IngestResult, error) {
			return &ingest.IngestResult{Ticker: ticker, Years: []models.FinancialYear{{Year: "2023", Revenue: 10}}}, nil
		}}
		r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), ing))
		body := parseState(t, doRequest(r, http.MethodPost, "/api/financials/fetch", `{"ticker":" ibm "}`))
		if body.Ticker != "IBM" || body.Financials[0].Year != "2023" || body.Source != "fetch" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("maps no data to 404", func(t *testing.T) {
		ing := &mockIngester{ingestFn: func(context.Context, string) (*ingest.IngestResult, error) {
			return nil, apperrors.ErrNoDataFound
		}}
		r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), ing))
		assertErrorCode(t, doRequest(r, http.MethodPost, "/api/financials/fetch", `{"ticker":"ZZZZ"}`), http.StatusNotFound, middleware.CodeNoDataFound)
	})

	t.Run("maps provider failure to 502", func(t *testing.T) {
		ing := &mockIngester{ingestFn: func(context.Context, string) (*ingest.IngestResult, error) {
			return nil, apperrors.NewDataError("CASH_FLOW", "IBM", "unexpected status 503", nil)
		}}
		r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), ing))
		assertErrorCode(t, doRequest(r, http.MethodPost, "/api/financials/fetch", `{"ticker":"IBM"}`), http.StatusBadGateway, middleware.CodeDataProviderFailed)
	})

	t.Run("requires ticker", func(t *testing.T) {
		r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), nil))
		assertErrorCode(t, doRequest(r, http.MethodPost, "/api/financials/fetch", `{}`), http.StatusBadRequest, middleware.CodeInvalidInput)
	})
}

func TestMetricsAndCharts(t *testing.T) {
	wb := workbook.New(zerolog.Nop())
	wb.EditCell(4, "revenue", "1000")
	wb.EditCell(4, "ebitda", "200")
	r := setupRouter(NewHandler(wb, nil))

	rec := doRequest(r, http.MethodGet, "/api/metrics", "")
	if !strings.Contains(rec.Body.String(), `"20.0%"`) {
		t.Errorf("expected formatted margin, got %s", rec.Body.String())
	}

	rec = doRequest(r, http.MethodGet, "/api/charts", "")
	var charts struct {
		Charts []struct {
			Labels []string `json:"labels"`
		} `json:"charts"`
	}
	json.Unmarshal(rec.Body.Bytes(), &charts)
	if len(charts.Charts) != 4 || len(charts.Charts[0].Labels) != 1 || charts.Charts[0].Labels[0] != "FY25" {
		t.Errorf("unexpected charts %s", rec.Body.String())
	}
}

func TestExportCSVAndImport(t *testing.T) {
	wb := workbook.New(zerolog.Nop())
	wb.ApplyFetch(wb.BeginFetch("IBM"), []models.FinancialYear{{Year: "2024", Revenue: 42}})
	r := setupRouter(NewHandler(wb, nil))

	rec := doRequest(r, http.MethodGet, "/api/export/csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "IBM_financials.csv") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "year,revenue,") {
		t.Errorf("unexpected csv %q", rec.Body.String())
	}

	years, err := export.ReadCSV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil || years[0].Revenue != 42 {
		t.Fatalf("export did not round trip: %v %+v", err, years)
	}
	years[0].Revenue = 84
	var csvBuf bytes.Buffer
	export.WriteCSV(&csvBuf, years)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, _ := mw.CreateFormFile("file", "upload.csv")
	part.Write(csvBuf.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/financials/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if body := parseState(t, rec); body.Financials[0].Revenue != 84 {
		t.Errorf("expected imported revenue 84, got %+v", body.Financials[0])
	}
}

func TestExportXLSX(t *testing.T) {
	r := setupRouter(NewHandler(workbook.New(zerolog.Nop()), nil))
	rec := doRequest(r, http.MethodGet, "/api/export/xlsx", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "financials.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected zip container")
	}
}
