package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-level API endpoints
type SystemHandler struct {
	BaseHandler
	appName string
	version string
	started time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(appName, version string) *SystemHandler {
	return &SystemHandler{
		appName: appName,
		version: version,
		started: time.Now(),
	}
}

// Ping answers a liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}

// GetSystemInfo reports build and runtime information
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, gin.H{
		"app":        h.appName,
		"version":    h.version,
		"go_version": runtime.Version(),
		"uptime":     time.Since(h.started).String(),
		"time":       time.Now().Format(time.RFC3339),
	})
}
