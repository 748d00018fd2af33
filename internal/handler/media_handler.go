package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
	"github.com/noah-isme/course-media-api/pkg/response"
)

type mediaFileOpener interface {
	Open(key string) (*os.File, error)
}

// MediaHandler serves blobs written by the local storage backend.
type MediaHandler struct {
	files mediaFileOpener
}

// NewMediaHandler constructs MediaHandler.
func NewMediaHandler(files mediaFileOpener) *MediaHandler {
	return &MediaHandler{files: files}
}

// Serve godoc
// @Summary Download a locally stored media file
// @Tags Media
// @Produce octet-stream
// @Param key path string true "Object key, e.g. image/course_management/<id>.png"
// @Success 200 {file} file
// @Router /media/{key} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media.not.found"))
		return
	}
	file, err := h.files.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media.not.found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media.not.found"))
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
