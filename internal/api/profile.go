package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/middleware"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

// ProfileHandler covers account self-service. Unlike the rest of the
// surface it sits behind the bearer middleware: a rename or password
// change must come from the account's own token.
type ProfileHandler struct {
	identity  *service.IdentityService
	uploadDir string
	logger    *zap.Logger
}

func NewProfileHandler(identity *service.IdentityService, uploadDir string, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{identity: identity, uploadDir: uploadDir, logger: logger}
}

// Update handles POST /api/profile/update (multipart: username,
// newUsername, currentPassword, newPassword, profilePicture).
func (h *ProfileHandler) Update(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		failMsg(c, apperr.CodeValidation, "username required")
		return
	}
	if username != middleware.GetUsername(c) {
		failMsg(c, apperr.CodePermissionDenied, "token does not match this account")
		return
	}

	update := service.ProfileUpdate{
		NewUsername:     c.PostForm("newUsername"),
		CurrentPassword: c.PostForm("currentPassword"),
		NewPassword:     c.PostForm("newPassword"),
	}

	if header, err := c.FormFile("profilePicture"); err == nil {
		storedName, err := saveUpload(c, header, h.uploadDir)
		if err != nil {
			fail(c, h.logger, err)
			return
		}
		update.AvatarPath = "/uploads/" + storedName
	}

	user, err := h.identity.UpdateProfile(username, update)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{
		"message": "profile updated",
		"user":    user,
	})
}
