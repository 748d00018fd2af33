package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-media-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "courses", Password: "s3cret", Name: "course_media", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5432 user=courses password=s3cret dbname=course_media sslmode=require application_name=course-media-api connect_timeout=5", dsn)
}

func TestDSNQuotesAndDefaults(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "courses", Password: `it's a \pass`, Name: "course_media"})
	assert.Contains(t, dsn, `password='it\'s a \\pass'`)
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestDSNSkipsEmptyPassword(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "courses", Name: "course_media"})
	assert.NotContains(t, dsn, "password=")
}
