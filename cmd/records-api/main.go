package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-records-console/api/swagger"
	"github.com/noah-isme/sma-records-console/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-records-console/internal/middleware"
	"github.com/noah-isme/sma-records-console/internal/repository"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/service"
	"github.com/noah-isme/sma-records-console/pkg/cache"
	"github.com/noah-isme/sma-records-console/pkg/config"
	"github.com/noah-isme/sma-records-console/pkg/database"
	"github.com/noah-isme/sma-records-console/pkg/jobs"
	"github.com/noah-isme/sma-records-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-records-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-records-console/pkg/middleware/requestid"
)

const cachePrefix = "records:"

// @title SMA Records API
// @version 0.1.0
// @description json-server compatible REST backend for the records console
// @BasePath /
// @schemes http

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

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	recordRepo := repository.NewRecordRepository(db)
	if err := recordRepo.Migrate(ctx); err != nil {
		logr.Fatal("failed to migrate records table", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, list cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cachePrefix, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	recordSvc := service.NewRecordService(recordRepo, schema.Default(), cacheSvc, metricsSvc, logr)

	invalidations := jobs.NewQueue("cache-invalidation", func(ctx context.Context, job jobs.Job) error {
		return cacheSvc.InvalidateCollection(ctx, job.Key)
	}, jobs.QueueConfig{Logger: logr})
	invalidations.Start(ctx)
	defer invalidations.Stop()
	recordSvc.SetInvalidationRetry(invalidations)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": recordRepo,
		"cache":    cacheRepo,
	})
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", handler.NewMetricsHandler(metricsSvc).Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.NewRecordHandler(recordSvc).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.Database.Driver, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
