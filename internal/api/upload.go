package api

import (
	"fmt"
	"math/rand"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
)

const maxUploadBytes = 100 << 20

// allowedUploadTypes is the intake allow-list, keyed by the declared
// content type of the part.
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true, "image/jpg": true, "image/png": true, "image/gif": true,
	"video/mp4": true, "video/avi": true, "video/mov": true,
	"application/pdf": true, "text/plain": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// saveUpload validates one multipart file and writes it into the
// upload directory under a collision-resistant generated name. The
// stored name, not the client's, is what gets served back at
// /uploads/<name>.
func saveUpload(c *gin.Context, header *multipart.FileHeader, uploadDir string) (string, error) {
	if header.Size > maxUploadBytes {
		return "", apperr.Validation("file too large, limit is 100MB")
	}
	if !allowedUploadTypes[header.Header.Get("Content-Type")] {
		return "", apperr.Validation("invalid file type")
	}

	name := fmt.Sprintf("file-%d-%d%s",
		time.Now().UnixMilli(),
		rand.Intn(1_000_000_000),
		filepath.Ext(header.Filename),
	)

	if err := c.SaveUploadedFile(header, filepath.Join(uploadDir, name)); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to store file", err)
	}
	return name, nil
}
