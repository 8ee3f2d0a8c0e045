package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acainfo/backend/internal/config"
	"github.com/acainfo/backend/internal/db"
	"github.com/acainfo/backend/internal/handler"
	"github.com/acainfo/backend/internal/logging"
	"github.com/acainfo/backend/internal/revocation"
	"github.com/acainfo/backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title AcaInfo Auth API
// @version 1.0
// @description Login, token refresh, logout and token validation for students and teachers.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	pg := &db.Postgres{Pool: pool}
	if err := pg.EnsureAuthSchema(ctx); err != nil {
		return err
	}

	store, closeStore, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	authService, err := service.NewAuthService(pg, store, cfg.Auth, logger)
	if err != nil {
		return err
	}

	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminName); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(authService, cfg.Server.AllowedOrigins, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRevocationStore prefers Redis when REDIS_ADDR is set so revocations are
// shared across replicas. The in-memory store gets a sweeper tied to ctx.
func newRevocationStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (revocation.Store, func(), error) {
	if cfg.Redis.Addr != "" {
		client, err := revocation.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("revocation store: redis", zap.String("addr", cfg.Redis.Addr))
		return revocation.NewRedis(client), func() { _ = client.Close() }, nil
	}

	mem := revocation.NewMemory()
	go mem.RunSweeper(ctx, cfg.Revocation.SweepInterval, logger.Named("revocation"))
	logger.Info("revocation store: memory", zap.Duration("sweep_interval", cfg.Revocation.SweepInterval))
	return mem, func() {}, nil
}
