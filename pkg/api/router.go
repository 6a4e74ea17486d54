// Package api assembles the HTTP surface: the workbench page and the JSON API under /api.
package api

import (
	"net/http"
	"time"

	"financial_auditor/pkg/api/analysis"
	"financial_auditor/pkg/api/config"
	"financial_auditor/pkg/api/financials"
	"financial_auditor/pkg/api/middleware"
	"financial_auditor/pkg/api/web"
	"financial_auditor/pkg/app"
	"financial_auditor/pkg/core/workbook"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine for s serving the shared workbook wb.
func NewRouter(s *app.Services, wb *workbook.Workbook) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(s.Logger))
	router.Use(middleware.ErrorHandler())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	corsCfg.MaxAge = 12 * time.Hour
	if origins := s.Config.Server.AllowedOrigins; len(origins) > 0 {
		corsCfg.AllowOrigins = origins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	web.NewHandler(wb).Register(router)

	v1 := router.Group("/api")
	var ingester workbook.Ingester
	if s.Ingestor != nil {
		ingester = s.Ingestor
	}
	financials.NewHandler(wb, ingester).Register(v1)
	analysis.NewHandler(s.Analyzer, wb).Register(v1)
	config.NewHandler(s.Agents).Register(v1)

	return router
}
