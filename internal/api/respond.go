package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"go.uber.org/zap"
)

// ok writes the success envelope. Every endpoint answers 200 with
// {"success": true, ...payload}; failure is carried inside the body,
// never as an HTTP status, so clients parse one shape.
func ok(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail recovers a registry error into the failure envelope. Anything
// outside the taxonomy is masked as INTERNAL with a generic message;
// the detail goes to the log, not the client.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": appErr.Message,
			"code":    appErr.Code,
		})
		return
	}

	logger.Error("unclassified handler error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"message": "internal error",
		"code":    apperr.CodeInternal,
	})
}

// failMsg is fail for request-shape problems caught before any service
// call.
func failMsg(c *gin.Context, code apperr.Code, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"message": message,
		"code":    code,
	})
}
