package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/models"

	"github.com/rs/zerolog"
)

var fixtures = map[string]string{
	"INCOME_STATEMENT": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","totalRevenue":"1000","operatingIncome":"150","depreciationAndAmortization":"50","netIncome":"100"},
		{"fiscalDateEnding":"2022-12-31","totalRevenue":"800","operatingIncome":"None","netIncome":"60"}]}`,
	"BALANCE_SHEET": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","totalShareholderEquity":"500","shortTermDebt":"None","totalLiabilities":"1000000"}]}`,
	"CASH_FLOW": `{"symbol":"IBM","annualReports":[
		{"fiscalDateEnding":"2023-12-31","operatingCashflow":"150","capitalExpenditures":"50"}]}`,
}

func newProviderServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func fixtureHandler(hits *int32) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		body, ok := fixtures[r.URL.Query().Get("function")]
		if !ok {
			http.Error(w, "unknown function", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestFetchStatements(t *testing.T) {
	var seen sync.Map
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "IBM" || q.Get("apikey") != "test-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		seen.Store(q.Get("function"), true)
		fmt.Fprint(w, fixtures[q.Get("function")])
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	stmts, err := client.FetchStatements(context.Background(), " ibm ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts.Income) != 2 || len(stmts.Balance) != 1 || len(stmts.CashFlow) != 1 {
		t.Errorf("unexpected report counts: %d/%d/%d", len(stmts.Income), len(stmts.Balance), len(stmts.CashFlow))
	}
	for _, kind := range models.StatementTypes {
		if _, ok := seen.Load(string(kind)); !ok {
			t.Errorf("expected a request for %s", kind)
		}
	}
}

func TestFetchStatementsFailsOnAnyError(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") == "BALANCE_SHEET" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, fixtures[r.URL.Query().Get("function")])
	})

	client := NewClient("k", WithBaseURL(srv.URL))
	stmts, err := client.FetchStatements(context.Background(), "IBM")
	if err == nil {
		t.Fatal("expected an error when one statement fails")
	}
	var de *apperrors.DataError
	if !apperrors.As(err, &de) {
		t.Fatalf("expected DataError, got %T", err)
	}
	if de.Function != "BALANCE_SHEET" {
		t.Errorf("expected failing function BALANCE_SHEET, got %s", de.Function)
	}
	if !stmts.Empty() {
		t.Error("no partial statements may be returned on failure")
	}
}

func TestFetchStatementsAdvisoryIsLoggedNotReturned(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	})

	var buf bytes.Buffer
	var mu sync.Mutex
	logger := zerolog.New(&lockedWriter{buf: &buf, mu: &mu})

	client := NewClient("k", WithBaseURL(srv.URL), WithLogger(logger))
	stmts, err := client.FetchStatements(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("advisory notices must not fail the fetch, got %v", err)
	}
	if !stmts.Empty() {
		t.Errorf("expected empty statements, got %+v", stmts)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := strings.Count(buf.String(), `"notice":"Note"`); got != 3 {
		t.Errorf("expected 3 advisory warnings, got %d in %s", got, buf.String())
	}
}

func TestFetchStatementsRequiresKeyAndTicker(t *testing.T) {
	client := NewClient("")
	if _, err := client.FetchStatements(context.Background(), "IBM"); !apperrors.Is(err, apperrors.ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	client = NewClient("k")
	if _, err := client.FetchStatements(context.Background(), "  "); !apperrors.Is(err, apperrors.ErrInvalidTicker) {
		t.Errorf("expected ErrInvalidTicker, got %v", err)
	}
}

func TestFetchReportsMalformedJSON(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>oops</html>`)
	})
	client := NewClient("k", WithBaseURL(srv.URL))
	if _, err := client.FetchReports(context.Background(), "IBM", models.CashFlow); err == nil {
		t.Error("expected parse error")
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) key(ticker string, kind models.StatementType) string {
	return ticker + "/" + string(kind)
}

func (m *memoryCache) Get(_ context.Context, ticker string, kind models.StatementType) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[m.key(ticker, kind)]
	return b, ok, nil
}

func (m *memoryCache) Put(_ context.Context, ticker string, kind models.StatementType, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[m.key(ticker, kind)] = payload
	return nil
}

func TestFetchStatementsUsesCache(t *testing.T) {
	var hits int32
	srv := newProviderServer(t, fixtureHandler(&hits))

	cache := &memoryCache{data: map[string][]byte{}}
	client := NewClient("k", WithBaseURL(srv.URL), WithCache(cache))

	if _, err := client.FetchStatements(context.Background(), "IBM"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := client.FetchStatements(context.Background(), "IBM"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("expected 3 network requests with cache, got %d", got)
	}
}

func TestIngestorReconciles(t *testing.T) {
	srv := newProviderServer(t, fixtureHandler(nil))
	ing := NewIngestor(NewClient("k", WithBaseURL(srv.URL)))

	res, err := ing.Ingest(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Years) != 2 || res.Years[0].Year != "2022" || res.Years[1].Year != "2023" {
		t.Fatalf("unexpected years: %+v", res.Years)
	}
	latest := res.Years[1]
	if latest.EBITDA != 200 || latest.Debt != 500000 || latest.FCF != 100 {
		t.Errorf("unexpected reconciled values: %+v", latest)
	}
}

func TestIngestorNoData(t *testing.T) {
	srv := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	ing := NewIngestor(NewClient("k", WithBaseURL(srv.URL)))
	if _, err := ing.Ingest(context.Background(), "ZZZZ"); !apperrors.Is(err, apperrors.ErrNoDataFound) {
		t.Errorf("expected ErrNoDataFound, got %v", err)
	}
}

type lockedWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
