package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

// RequestHandler covers the pending-request queue.
type RequestHandler struct {
	identity *service.IdentityService
	logger   *zap.Logger
}

func NewRequestHandler(identity *service.IdentityService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{identity: identity, logger: logger}
}

// List handles GET /api/requests/:username
func (h *RequestHandler) List(c *gin.Context) {
	requests, err := h.identity.PendingRequests(c.Param("username"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"requests": requests})
}

type handleRequestBody struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

// Handle handles POST /api/requests/handle
func (h *RequestHandler) Handle(c *gin.Context) {
	var req handleRequestBody
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestID == "" || req.Action == "" {
		failMsg(c, apperr.CodeValidation, "request id and action required")
		return
	}

	if err := h.identity.ResolveRequest(req.RequestID, req.Action); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": fmt.Sprintf("request %sed", req.Action)})
}
