package middleware

import (
	"errors"
	"net/http"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/logging"

	"github.com/gin-gonic/gin"
)

// Error codes returned in {"error": {"code", "message"}} bodies.
const (
	CodeNoDataFound        = "NO_DATA_FOUND"
	CodeDataProviderFailed = "DATA_PROVIDER_FAILED"
	CodeAnalysisFailed     = "ANALYSIS_FAILED"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// InputError marks a request the client must fix.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// InvalidInput wraps err so it maps to 400 INVALID_INPUT.
func InvalidInput(err error) error {
	return &InputError{Err: err}
}

// HTTPError is the response an error maps to.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	// Internal errors are logged, never echoed.
	Internal bool
}

// Classify maps an error from the core packages to its HTTP response.
func Classify(err error) HTTPError {
	var (
		inputErr    *InputError
		analysisErr *apperrors.AnalysisError
		dataErr     *apperrors.DataError
	)

	switch {
	case errors.As(err, &inputErr),
		apperrors.Is(err, apperrors.ErrInvalidTicker),
		apperrors.Is(err, apperrors.ErrInvalidCell),
		apperrors.Is(err, apperrors.ErrInvalidWorkbook):
		return HTTPError{Status: http.StatusBadRequest, Code: CodeInvalidInput, Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrNoDataFound):
		return HTTPError{Status: http.StatusNotFound, Code: CodeNoDataFound, Message: "No financial data found for this ticker. Check the symbol or enter figures manually."}
	case errors.As(err, &analysisErr), apperrors.Is(err, apperrors.ErrProviderNotFound):
		return HTTPError{Status: http.StatusBadGateway, Code: CodeAnalysisFailed, Message: "The analysis service did not return a usable report: " + err.Error()}
	case errors.As(err, &dataErr), apperrors.Is(err, apperrors.ErrMissingCredential):
		return HTTPError{Status: http.StatusBadGateway, Code: CodeDataProviderFailed, Message: "The financial data provider request failed: " + err.Error()}
	default:
		return HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Internal server error", Internal: true}
	}
}

// RespondError writes the JSON error body for err.
func RespondError(c *gin.Context, err error) {
	he := Classify(err)
	logger := logging.FromContext(c.Request.Context())
	event := logger.Warn()
	if he.Internal {
		event = logger.Error()
	}
	event.Err(err).
		Str("code", he.Code).
		Str("path", c.Request.URL.Path).
		Str("method", c.Request.Method).
		Msg("Request failed")

	c.AbortWithStatusJSON(he.Status, gin.H{
		"error": gin.H{
			"code":    he.Code,
			"message": he.Message,
		},
	})
}

// ErrorHandler converts errors attached with c.Error into JSON error responses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondError(c, c.Errors.Last().Err)
	}
}
