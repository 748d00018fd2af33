package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-media-api/api/swagger"
	"github.com/noah-isme/course-media-api/internal/handler"
	"github.com/noah-isme/course-media-api/internal/middleware"
	"github.com/noah-isme/course-media-api/internal/repository"
	"github.com/noah-isme/course-media-api/internal/service"
	"github.com/noah-isme/course-media-api/pkg/cache"
	"github.com/noah-isme/course-media-api/pkg/config"
	"github.com/noah-isme/course-media-api/pkg/database"
	"github.com/noah-isme/course-media-api/pkg/imaging"
	"github.com/noah-isme/course-media-api/pkg/jobs"
	"github.com/noah-isme/course-media-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-media-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-media-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-media-api/pkg/storage"
)

// @title Course Media API
// @version 1.0.0
// @description Courses, lessons and students with ordered media attachments and batch enrollment
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, selection cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	blobs, localStore, err := newBlobStore(ctx, cfg.Media)
	if err != nil {
		logr.Fatal("failed to init blob store", zap.Error(err), zap.String("backend", cfg.Media.Backend))
	}
	if closer, ok := blobs.(io.Closer); ok {
		defer closer.Close() //nolint:errcheck
	}

	var normalizer service.ImageNormalizer
	if cfg.Media.Image.WebPEnabled {
		normalizer = imaging.NewNormalizer(cfg.Media.Image)
	}

	cleanupWorker := service.NewOrphanCleanupWorker(blobs, metricsSvc, logr)
	cleanupQueue := jobs.NewQueue("media-orphan-cleanup", cleanupWorker.Handle, jobs.QueueConfig{
		Workers:     2,
		MaxRetries:  5,
		RetryDelay:  5 * time.Second,
		OnExhausted: cleanupWorker.Abandon,
		Logger:      logr,
	})
	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	validate := service.NewValidator()
	owners := service.NewOwnerDirectory(courseRepo, lessonRepo, studentRepo)
	mediaSvc := service.NewMediaService(attachmentRepo, blobs, db, owners, normalizer, service.MediaOptions{
		UploadConcurrency: cfg.Media.UploadConcurrency,
		MaxFileSizeBytes:  cfg.Media.MaxFileSizeBytes,
		CleanupOrphans:    cfg.Media.CleanupOrphans,
		Cleanup:           cleanupQueue,
	}, metricsSvc, logr)

	courseSvc := service.NewCourseService(courseRepo, mediaSvc, cacheSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, mediaSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, mediaSvc, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, db, validate, metricsSvc, logr)
	exportSvc := service.NewExportService(courseRepo, studentRepo, nil, nil, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	handlers := handler.Handlers{
		Courses:     handler.NewCourseHandler(courseSvc, exportSvc),
		Lessons:     handler.NewLessonHandler(lessonSvc),
		Students:    handler.NewStudentHandler(studentSvc, exportSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Metrics:     metricsHandler,
	}
	if localStore != nil {
		handlers.Media = handler.NewMediaHandler(localStore)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	handler.RegisterRoutes(api, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "media_backend", cfg.Media.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

// newBlobStore selects the media backend. The local store is also returned so
// its files can be served over HTTP.
func newBlobStore(ctx context.Context, cfg config.MediaConfig) (service.BlobStore, *storage.LocalStore, error) {
	switch cfg.Backend {
	case config.MediaBackendGCS:
		store, err := storage.NewGCSStore(ctx, cfg.GCS, cfg.Folder)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.MediaBackendLocal, "":
		store, err := storage.NewLocalStore(cfg.Local.Dir, cfg.Local.PublicBaseURL, cfg.Folder)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
