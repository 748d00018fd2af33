package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Media backends understood by the blob store factory.
const (
	MediaBackendGCS   = "gcs"
	MediaBackendLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	CORS     CORSConfig
	Log      LogConfig
	Media    MediaConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs caching of selection lists.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MediaConfig controls the blob store backend and upload handling.
type MediaConfig struct {
	Backend           string
	Folder            string
	UploadConcurrency int
	MaxFileSizeBytes  int64
	CleanupOrphans    bool

	GCS   GCSConfig
	Local LocalMediaConfig
	Image ImageConfig
}

// GCSConfig points at the bucket used for media.
type GCSConfig struct {
	Bucket          string
	CDNDomain       string
	CredentialsFile string
	CredentialsJSON string
}

// LocalMediaConfig is the on-disk fallback used in development.
type LocalMediaConfig struct {
	Dir           string
	PublicBaseURL string
}

// ImageConfig tunes avatar/thumbnail normalisation.
type ImageConfig struct {
	WebPEnabled bool
	Quality     float32
	MaxWidth    int
	MaxHeight   int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 100 * 1024 * 1024
	}
	concurrency := v.GetInt("MEDIA_UPLOAD_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 1
	}
	cfg.Media = MediaConfig{
		Backend:           strings.ToLower(v.GetString("MEDIA_BACKEND")),
		Folder:            v.GetString("MEDIA_FOLDER"),
		UploadConcurrency: concurrency,
		MaxFileSizeBytes:  maxFileSize,
		CleanupOrphans:    v.GetBool("MEDIA_CLEANUP_ORPHANS"),
		GCS: GCSConfig{
			Bucket:          v.GetString("GCS_BUCKET"),
			CDNDomain:       v.GetString("GCS_CDN_DOMAIN"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			CredentialsJSON: v.GetString("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
		},
		Local: LocalMediaConfig{
			Dir:           v.GetString("MEDIA_LOCAL_DIR"),
			PublicBaseURL: strings.TrimRight(v.GetString("MEDIA_PUBLIC_BASE_URL"), "/"),
		},
		Image: ImageConfig{
			WebPEnabled: v.GetBool("MEDIA_WEBP_ENABLED"),
			Quality:     float32(v.GetFloat64("MEDIA_WEBP_QUALITY")),
			MaxWidth:    v.GetInt("MEDIA_IMAGE_MAX_WIDTH"),
			MaxHeight:   v.GetInt("MEDIA_IMAGE_MAX_HEIGHT"),
		},
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "course_management")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEDIA_BACKEND", MediaBackendLocal)
	v.SetDefault("MEDIA_FOLDER", "course_management")
	v.SetDefault("MEDIA_UPLOAD_CONCURRENCY", 4)
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 100*1024*1024)
	v.SetDefault("MEDIA_CLEANUP_ORPHANS", true)
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CDN_DOMAIN", "")
	v.SetDefault("MEDIA_LOCAL_DIR", "./media")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080/api/v1/media")
	v.SetDefault("MEDIA_WEBP_ENABLED", false)
	v.SetDefault("MEDIA_WEBP_QUALITY", 82)
	v.SetDefault("MEDIA_IMAGE_MAX_WIDTH", 1600)
	v.SetDefault("MEDIA_IMAGE_MAX_HEIGHT", 1600)

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
