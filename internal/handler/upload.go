package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumanager-api/internal/middleware"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/response"
)

// uploadField is the multipart field every upload endpoint reads.
const uploadField = "file"

// multipartOverhead leaves room for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// openUpload returns the uploaded file and its original name. maxBytes <= 0 disables
// the size limit.
func openUpload(c *gin.Context, maxBytes int64) (multipart.File, string, error) {
	if maxBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", appErrors.Clone(appErrors.ErrFileTooLarge, "file exceeds the upload size limit")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrNoFile.Code, appErrors.ErrNoFile.Status, appErrors.ErrNoFile.Message)
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, "", appErrors.Clone(appErrors.ErrFileTooLarge, "file exceeds the upload size limit")
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNoFile.Code, appErrors.ErrNoFile.Status, "failed to read uploaded file")
	}
	return file, header.Filename, nil
}

// sendGenerated streams a file from the generated directory as an attachment.
func sendGenerated(c *gin.Context, file *os.File, fallbackType string) {
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}
	name := filepath.Base(file.Name())
	contentType := contentTypeFor(name, fallbackType)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, io.Reader(file), map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
	})
}

func contentTypeFor(name, fallback string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".pdf":
		return "application/pdf"
	}
	return fallback
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := middleware.CurrentClaims(c)
	return claims
}
