package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/auth"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

// AuthHandler handles account creation and login, the two endpoints
// that mint tokens instead of requiring one.
type AuthHandler struct {
	identity  *service.IdentityService
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthHandler(identity *service.IdentityService, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, jwtSecret: jwtSecret, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		failMsg(c, apperr.CodeValidation, "username and password required")
		return
	}

	user, err := h.identity.Register(req.Username, req.Password)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, h.jwtSecret, tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		fail(c, h.logger, apperr.Internal("registration failed"))
		return
	}

	ok(c, gin.H{
		"message": "account created!",
		"user":    gin.H{"username": user.Username, "id": user.ID},
		"token":   token,
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		failMsg(c, apperr.CodeValidation, "username and password required")
		return
	}

	user, err := h.identity.Authenticate(req.Username, req.Password)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, h.jwtSecret, tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		fail(c, h.logger, apperr.Internal("login failed"))
		return
	}

	ok(c, gin.H{"user": user, "token": token})
}
