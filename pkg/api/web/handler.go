// Package web serves the server-rendered workbench page.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"financial_auditor/pkg/api/middleware"
	"financial_auditor/pkg/core/calc"
	"financial_auditor/pkg/core/chart"
	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/core/workbook"
	"financial_auditor/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"cellValue": func(f models.Field, fy models.FinancialYear) string {
		return utils.FormatInput(f.Value(fy))
	},
}

var pageTemplate = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

type page struct {
	Ticker     string
	Years      []models.FinancialYear
	Fields     []models.Field
	Metrics    []utils.MetricRow
	ChartsJSON string
	HasCharts  bool
}

// Handler renders the workbench.
type Handler struct {
	wb *workbook.Workbook
}

func NewHandler(wb *workbook.Workbook) *Handler {
	return &Handler{wb: wb}
}

// Register mounts the page on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Workbench)
}

// Workbench renders the editable statements, derived metrics and chart data.
func (h *Handler) Workbench(c *gin.Context) {
	st := h.wb.Snapshot()
	charts := chart.Build(st.Years)
	chartsJSON, err := json.Marshal(charts)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.Render(http.StatusOK, render.HTML{
		Template: pageTemplate,
		Name:     "workbench",
		Data: page{
			Ticker:     st.Ticker,
			Years:      st.Years,
			Fields:     models.Fields,
			Metrics:    utils.MetricRows(calc.Derive(st.Years)),
			ChartsJSON: string(chartsJSON),
			HasCharts:  len(charts) > 0,
		},
	})
}
