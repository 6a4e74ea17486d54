package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "financial_auditor/pkg/core/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("reconcile: %w", apperrors.ErrNoDataFound), http.StatusNotFound, CodeNoDataFound},
		{apperrors.NewDataError("BALANCE_SHEET", "IBM", "status 500", nil), http.StatusBadGateway, CodeDataProviderFailed},
		{apperrors.ErrMissingCredential, http.StatusBadGateway, CodeDataProviderFailed},
		{apperrors.NewAnalysisError("gemini", apperrors.StageSchema, apperrors.ErrSchemaViolation), http.StatusBadGateway, CodeAnalysisFailed},
		{apperrors.ErrInvalidTicker, http.StatusBadRequest, CodeInvalidInput},
		{fmt.Errorf("%w: row 9", apperrors.ErrInvalidCell), http.StatusBadRequest, CodeInvalidInput},
		{InvalidInput(errors.New("bad json")), http.StatusBadRequest, CodeInvalidInput},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, c := range cases {
		he := Classify(c.err)
		if he.Status != c.status || he.Code != c.code {
			t.Errorf("%v: expected %d %s, got %d %s", c.err, c.status, c.code, he.Status, he.Code)
		}
	}

	if he := Classify(errors.New("db password leaked")); strings.Contains(he.Message, "password") {
		t.Errorf("internal error message must not leak: %q", he.Message)
	}
}

func TestErrorHandlerAndRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	r := gin.New()
	r.Use(RequestLogging(zerolog.New(&logs)))
	r.Use(ErrorHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNoDataFound)
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": RequestID(c)})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != CodeNoDataFound || body.Error.Message == "" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	id := rec.Header().Get(RequestIDHeader)
	if !strings.Contains(rec.Body.String(), id) {
		t.Errorf("handler should see request id %s, got %s", id, rec.Body.String())
	}
	if !strings.Contains(logs.String(), `"request_id":"`+id+`"`) || !strings.Contains(logs.String(), `"status":200`) {
		t.Errorf("expected access log with request id, got %s", logs.String())
	}
}
