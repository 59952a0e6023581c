package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/config"
	"github.com/rasyendriar/machine-dashboard-app/internal/middleware"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/handler"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/repository"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create or update tables before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg, zapLogger := a.cfg, a.logger
	zapLogger.Info("Starting machine dashboard service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		return err
	}
	if migrate {
		if err := repository.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	hub := realtime.NewHub(zapLogger)
	var notifier realtime.Notifier = hub

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = initRedis(cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		bridge := realtime.NewRedisBridge(rdb, cfg.Redis.Channel, hub, zapLogger)
		notifier = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("change relay stopped", zap.Error(err))
			}
		}()
	} else {
		zapLogger.Warn("Redis not configured, previews and change events stay in this process")
	}

	var uploader storage.Uploader
	drive, err := storage.NewDrive(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		zapLogger.Warn("Object storage not configured, drawing uploads are disabled")
	case err != nil:
		return fmt.Errorf("init storage: %w", err)
	default:
		uploader = drive
	}

	services := service.NewServices(repository.NewRepositories(db), rdb, uploader, notifier, cfg, zapLogger)
	handlers := handler.NewHandlers(services, hub, cfg, zapLogger)
	go handlers.Realtime.Run(ctx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events", "/api/v1/ws"})))

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version, "build_time": BuildTime})
	})

	api := router.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	handlers.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited")
	return nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: 5 * time.Second,
	})
}
