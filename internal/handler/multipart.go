package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-media-api/internal/dto"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

// Multipart field names shared by owner endpoints.
const (
	fieldThumbnails         = "thumbnails"
	fieldVideos             = "videos"
	fieldAvatar             = "avatar"
	fieldDeleteThumbnailIDs = "delete_thumbnail_ids"
	fieldDeleteVideoIDs     = "delete_video_ids"
	fieldDeleteAvatarIDs    = "delete_avatar_ids"
)

// formUploads returns the files posted under field. Requests that are not
// multipart carry no files.
func formUploads(c *gin.Context, field string) ([]dto.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload")
	}
	headers := form.File[field]
	uploads := make([]dto.Upload, 0, len(headers))
	for _, header := range headers {
		uploads = append(uploads, uploadFromHeader(header))
	}
	return uploads, nil
}

func uploadFromHeader(header *multipart.FileHeader) dto.Upload {
	return dto.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// formIDs collects ids from repeated or comma separated form values.
func formIDs(c *gin.Context, field string) ([]int64, error) {
	values := c.PostFormArray(field)
	ids := make([]int64, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid id list", field)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func formMediaChanges(c *gin.Context, filesField, deleteField string) (dto.MediaChanges, error) {
	files, err := formUploads(c, filesField)
	if err != nil {
		return dto.MediaChanges{}, err
	}
	ids, err := formIDs(c, deleteField)
	if err != nil {
		return dto.MediaChanges{}, err
	}
	return dto.MediaChanges{DeleteIDs: ids, Files: files}, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.WithDetails(appErrors.ErrValidation, "invalid path id", name)
	}
	return id, nil
}

func bindForm(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBind(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}

func bindQuery(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindQuery(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query")
	}
	return nil
}
