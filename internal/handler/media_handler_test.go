package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-media-api/pkg/storage"
)

func TestMediaHandlerServe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/media", "course_management")
	require.NoError(t, err)
	obj, err := store.Upload(context.Background(), bytes.NewReader([]byte("frame-data")), storage.UploadMeta{
		Filename: "clip.mp4",
		Resource: storage.ResourceVideo,
	})
	require.NoError(t, err)

	handler := NewMediaHandler(store)

	c, w := newGinContext(http.MethodGet, "/media/video/"+obj.ExternalID, nil)
	c.Params = gin.Params{{Key: "key", Value: "/video/" + obj.ExternalID}}
	handler.Serve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "frame-data", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/media/video/missing.mp4", nil)
	c.Params = gin.Params{{Key: "key", Value: "/video/missing.mp4"}}
	handler.Serve(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodGet, "/media/../secret", nil)
	c.Params = gin.Params{{Key: "key", Value: "/../secret"}}
	handler.Serve(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return nil }))
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return errors.New("connection refused") }))
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerPrometheusWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, c.IsAborted())
	assert.Empty(t, w.Body.String())
}
