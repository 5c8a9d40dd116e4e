package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/service"
)

// HealthHandler reports liveness plus coarse entity counts.
type HealthHandler struct {
	repos   service.Repos
	hub     *hub.Hub
	started time.Time
}

func NewHealthHandler(repos service.Repos, h *hub.Hub) *HealthHandler {
	return &HealthHandler{repos: repos, hub: h, started: time.Now()}
}

// Check handles GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"users":     h.repos.Users.Count(),
		"friends":   h.repos.Friends.TotalEdges(),
		"groups":    h.repos.Groups.Count(),
		"chats":     h.repos.Chats.Total(),
		"online":    h.hub.OnlineCount(),
		"uptime":    time.Since(h.started).Seconds(),
	})
}
