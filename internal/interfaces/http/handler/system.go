package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SystemStats reports live counters shown on the health endpoint
type SystemStats interface {
	ActiveSessions() int
}

// WorkspaceCounter reports the number of open workspaces
type WorkspaceCounter interface {
	Len() int
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	name       string
	version    string
	startTime  time.Time
	sessions   SystemStats
	workspaces WorkspaceCounter
}

// NewSystemHandler creates a new SystemHandler. sessions and workspaces may be nil.
func NewSystemHandler(name, version string, sessions SystemStats, workspaces WorkspaceCounter) *SystemHandler {
	return &SystemHandler{
		name:       name,
		version:    version,
		startTime:  time.Now(),
		sessions:   sessions,
		workspaces: workspaces,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	GoVersion      string `json:"go_version"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
	Workspaces     int    `json:"workspaces"`
}

// Health godoc
// @Summary      Health check
// @Description  Liveness with uptime and session counters
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.ActiveSessions()
	}
	if h.workspaces != nil {
		resp.Workspaces = h.workspaces.Len()
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping godoc
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
