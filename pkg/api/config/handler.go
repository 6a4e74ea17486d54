package config

import (
	"net/http"

	"financial_auditor/pkg/api/middleware"
	"financial_auditor/pkg/core/agent"
	apperrors "financial_auditor/pkg/core/errors"

	"github.com/gin-gonic/gin"
)

type Response struct {
	ActiveProvider string                       `json:"active_provider"`
	Available      []string                     `json:"available"`
	Agents         map[string]agent.AgentConfig `json:"agents"`
}

type SwitchRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager) *Handler {
	return &Handler{
		AgentMgr: agentMgr,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/config", h.HandleConfig)
	r.POST("/config/switch", h.HandleSwitch)
}

func (h *Handler) HandleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.current())
}

func (h *Handler) HandleSwitch(c *gin.Context) {
	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, middleware.InvalidInput(err))
		return
	}

	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		if apperrors.Is(err, apperrors.ErrProviderNotFound) {
			err = middleware.InvalidInput(err)
		}
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.current())
}

func (h *Handler) current() Response {
	return Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.ProviderNames(),
		Agents:         h.AgentMgr.Agents(),
	}
}
