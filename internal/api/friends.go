package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

// FriendHandler covers the friendship surface: requesting, removing,
// and listing.
type FriendHandler struct {
	identity *service.IdentityService
	logger   *zap.Logger
}

func NewFriendHandler(identity *service.IdentityService, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{identity: identity, logger: logger}
}

type friendRequestBody struct {
	Username       string `json:"username"`
	FriendUsername string `json:"friendUsername"`
	Message        string `json:"message"`
}

// Request handles POST /api/friends/request
func (h *FriendHandler) Request(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.FriendUsername == "" {
		failMsg(c, apperr.CodeValidation, "username and friend username required")
		return
	}

	if err := h.identity.RequestFriend(req.Username, req.FriendUsername, req.Message); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "friend request sent"})
}

// Remove handles POST /api/friends/remove
func (h *FriendHandler) Remove(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.FriendUsername == "" {
		failMsg(c, apperr.CodeValidation, "username and friend username required")
		return
	}

	if err := h.identity.RemoveFriend(req.Username, req.FriendUsername); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "friend removed successfully"})
}

// List handles GET /api/friends/:username
func (h *FriendHandler) List(c *gin.Context) {
	friends, err := h.identity.ListFriends(c.Param("username"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"friends": friends})
}
