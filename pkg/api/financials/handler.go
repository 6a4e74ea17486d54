package financials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"financial_auditor/pkg/api/middleware"
	"financial_auditor/pkg/core/calc"
	"financial_auditor/pkg/core/chart"
	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/export"
	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/core/workbook"
	"financial_auditor/pkg/models"

	"github.com/gin-gonic/gin"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the workbook, metrics, charts and exports.
type Handler struct {
	wb       *workbook.Workbook
	ingester workbook.Ingester
}

// NewHandler creates a financials handler. ingester may be nil when no data provider is configured.
func NewHandler(wb *workbook.Workbook, ingester workbook.Ingester) *Handler {
	return &Handler{wb: wb, ingester: ingester}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/financials", h.GetFinancials)
	r.PUT("/financials", h.ReplaceFinancials)
	r.POST("/financials/fetch", h.Fetch)
	r.PATCH("/financials/cell", h.EditCell)
	r.POST("/financials/import", h.ImportCSV)
	r.GET("/metrics", h.GetMetrics)
	r.GET("/charts", h.GetCharts)
	r.GET("/export/csv", h.ExportCSV)
	r.GET("/export/xlsx", h.ExportXLSX)
}

type replaceRequest struct {
	Financials []models.FinancialYear `json:"financials" binding:"required,max=5"`
}

type fetchRequest struct {
	Ticker string `json:"ticker" binding:"required,max=16"`
}

type cellRequest struct {
	Index *int            `json:"index" binding:"required"`
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
}

type stateResponse struct {
	workbook.State
	Metrics []models.CalculatedMetrics `json:"metrics"`
}

func withMetrics(st workbook.State) stateResponse {
	return stateResponse{State: st, Metrics: calc.Derive(st.Years)}
}

// GetFinancials returns the current workbook with its derived metrics.
func (h *Handler) GetFinancials(c *gin.Context) {
	c.JSON(http.StatusOK, withMetrics(h.wb.Snapshot()))
}

// ReplaceFinancials installs a complete record set.
func (h *Handler) ReplaceFinancials(c *gin.Context) {
	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, middleware.InvalidInput(err))
		return
	}
	st, err := h.wb.Replace(req.Financials)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withMetrics(st))
}

// Fetch pulls the three statements for a ticker, reconciles them and installs the result.
func (h *Handler) Fetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, middleware.InvalidInput(err))
		return
	}
	if h.ingester == nil {
		middleware.RespondError(c, fmt.Errorf("%w: data provider is not configured", apperrors.ErrMissingCredential))
		return
	}

	st, err := h.wb.Fetch(c.Request.Context(), h.ingester, strings.ToUpper(strings.TrimSpace(req.Ticker)))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withMetrics(st))
}

// EditCell replaces one value. The value may be a JSON number or string; anything
// unparseable is stored as 0.
func (h *Handler) EditCell(c *gin.Context) {
	var req cellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, middleware.InvalidInput(err))
		return
	}

	st, err := h.wb.EditCell(*req.Index, req.Field, rawCellValue(req.Value))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withMetrics(st))
}

func rawCellValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// ImportCSV replaces the workbook from an uploaded CSV in the export format.
func (h *Handler) ImportCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		middleware.RespondError(c, middleware.InvalidInput(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	defer f.Close()

	years, err := export.ReadCSV(f)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	st, err := h.wb.Replace(years)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withMetrics(st))
}

// GetMetrics returns raw and display-formatted metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	metrics := h.wb.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":   metrics,
		"formatted": utils.MetricRows(metrics),
	})
}

// GetCharts returns the dashboard chart datasets.
func (h *Handler) GetCharts(c *gin.Context) {
	charts := chart.Build(h.wb.Snapshot().Years)
	if charts == nil {
		charts = []chart.Chart{}
	}
	c.JSON(http.StatusOK, gin.H{"charts": charts})
}

// ExportCSV streams the workbook as <TICKER>_financials.csv.
func (h *Handler) ExportCSV(c *gin.Context) {
	st := h.wb.Snapshot()
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, st.Years); err != nil {
		middleware.RespondError(c, err)
		return
	}
	attachment(c, export.FileName(st.Ticker, "csv"))
	c.Data(http.StatusOK, csvContentType, buf.Bytes())
}

// ExportXLSX streams the workbook and metrics as a spreadsheet.
func (h *Handler) ExportXLSX(c *gin.Context) {
	st := h.wb.Snapshot()
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, st.Years, calc.Derive(st.Years)); err != nil {
		middleware.RespondError(c, err)
		return
	}
	attachment(c, export.FileName(st.Ticker, "xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
