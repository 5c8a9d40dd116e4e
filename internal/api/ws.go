package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/whisperline/internal/hub"
	"go.uber.org/zap"
)

// WSHandler upgrades GET /ws connections and hands them to the hub.
type WSHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func NewWSHandler(h *hub.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: h, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the static frontend origin; the
	// session is useless until it proves a username over user_online.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve handles GET /ws. An address already holding its maximum number
// of sockets is refused before the upgrade.
func (h *WSHandler) Serve(c *gin.Context) {
	addr := c.ClientIP()

	if !h.hub.Admit(addr) {
		h.logger.Warn("connection limit reached", zap.String("addr", addr))
		c.String(http.StatusTooManyRequests, "connection limit reached")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Release(addr)
		h.logger.Warn("websocket upgrade failed",
			zap.String("addr", addr),
			zap.Error(err),
		)
		return
	}

	h.hub.Serve(conn, addr)
}
