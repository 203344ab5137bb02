package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sundey-crm/internal/repositories"
	"sundey-crm/internal/routes"
	"sundey-crm/internal/workers"
	"sundey-crm/pkg/config"
	"sundey-crm/pkg/database/postgresql"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/eventbus"
	"sundey-crm/pkg/filestorage"
	applogger "sundey-crm/pkg/logger"
	"sundey-crm/pkg/metrics"
	appmw "sundey-crm/pkg/middleware"
	"sundey-crm/pkg/service"
	"sundey-crm/pkg/utils"
	"sundey-crm/pkg/validation"
	"sundey-crm/pkg/websocket"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(appmw.RequestLogger(logger.Named("http")))
	e.Validator = validation.New()

	uploadsPath, err := filepath.Abs(cfg.Storage.LocalPath)
	if err != nil {
		logger.Fatal("failed to resolve uploads directory", zap.Error(err))
	}
	e.Static("/uploads", uploadsPath)

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgresql.Migrate(ctx, dbConn); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		logger.Info("database migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	var cleanupLock repositories.CacheRepositoryInterface
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn("redis unavailable, cleanup runs are serialized per process only",
			zap.String("address", cfg.Redis.Address), zap.Error(err))
	} else {
		cleanupLock = repositories.NewRedisCacheRepository(redisClient)
	}

	localStorage, err := filestorage.NewLocalFileStorage(uploadsPath)
	if err != nil {
		logger.Fatal("failed to prepare uploads directory", zap.Error(err))
	}
	presigner, err := filestorage.NewS3Presigner(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to configure object storage", zap.Error(err))
	}

	appMetrics := metrics.NewMetrics("sundey", nil)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	hub := websocket.NewHub(logger.Named("ws"))
	bus := eventbus.New(logger.Named("events"))
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)

	routes.InitRouter(e, routes.Dependencies{
		DB:        dbConn,
		JWT:       jwtSvc,
		Hub:       hub,
		Bus:       bus,
		Metrics:   appMetrics,
		Storage:   localStorage,
		Presigner: presigner,
		Config:    cfg,
		Loggers: &routes.Loggers{
			Main:        logger,
			Auth:        logger.Named("auth"),
			Reservation: logger.Named("reservation"),
			Realtime:    logger.Named("realtime"),
		},
	})

	cleanupWorker := workers.NewCleanupOrphanPhotosWorker(
		repositories.NewJobRepository(dbConn, logger.Named("cleanup")),
		cleanupLock, cfg.Cleanup, appMetrics, logger.Named("cleanup"),
	)
	cleanupWorker.Start()
	defer cleanupWorker.Stop()

	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
