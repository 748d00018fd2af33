package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-media-api/pkg/config"
)

func TestGCSPublicURL(t *testing.T) {
	store := &GCSStore{bucket: "media-bucket"}
	assert.Equal(t, "https://storage.googleapis.com/media-bucket/image/a/b.png", store.publicURL("image/a/b.png"))

	store.cdnDomain = "cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/video/a.mp4", store.publicURL("/video/a.mp4"))
}

func TestGCSClientOptions(t *testing.T) {
	assert.Nil(t, clientOptions(config.GCSConfig{}))
	assert.Len(t, clientOptions(config.GCSConfig{CredentialsFile: "/secrets/sa.json"}), 1)
	assert.Len(t, clientOptions(config.GCSConfig{CredentialsJSON: `{"type":"service_account"}`, CredentialsFile: "/x"}), 1)
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey("course_management/abc.jpg", ResourceImage)
	assert.NoError(t, err)
	assert.Equal(t, "image/course_management/abc.jpg", key)

	key, err = objectKey("course_management/abc.mp4", ResourceKind("unknown"))
	assert.NoError(t, err)
	assert.Equal(t, "image/course_management/abc.mp4", key)

	_, err = objectKey("", ResourceVideo)
	assert.Error(t, err)
}
