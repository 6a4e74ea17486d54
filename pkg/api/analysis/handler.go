package analysis

import (
	"context"
	"net/http"

	"financial_auditor/pkg/api/middleware"
	"financial_auditor/pkg/core/calc"
	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/core/workbook"
	"financial_auditor/pkg/models"

	"github.com/gin-gonic/gin"
)

// Reporter produces an anomaly report. analysis.Analyzer satisfies it.
type Reporter interface {
	AnalyzeCompany(ctx context.Context, company string, financials []models.FinancialYear, metrics []models.CalculatedMetrics) (models.AnomalyReport, error)
}

// Handler runs anomaly analysis over the current workbook.
type Handler struct {
	reporter Reporter
	wb       *workbook.Workbook
}

func NewHandler(reporter Reporter, wb *workbook.Workbook) *Handler {
	return &Handler{reporter: reporter, wb: wb}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/analysis", h.Analyze)
}

// Response is the report plus its narrative rendered to HTML.
type Response struct {
	models.AnomalyReport
	Ticker       string `json:"ticker,omitempty"`
	AnalysisHTML string `json:"analysis_html"`
}

// Analyze sends a snapshot of the workbook and its metrics for review.
// The workbook is never modified, whatever the outcome.
func (h *Handler) Analyze(c *gin.Context) {
	st := h.wb.Snapshot()

	report, err := h.reporter.AnalyzeCompany(c.Request.Context(), st.Ticker, st.Years, calc.Derive(st.Years))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	html, err := utils.MarkdownToHTML(report.Analysis)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		AnomalyReport: report,
		Ticker:        st.Ticker,
		AnalysisHTML:  html,
	})
}
