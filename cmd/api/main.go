package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cardfraud/internal/config"
	"cardfraud/internal/repository"
	"cardfraud/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfg, err := config.LoadServer(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		logger.Fatal("failed to open model store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeBackend()

	cached, err := repository.NewCached(backend, cfg.CacheSize)
	if err != nil {
		logger.Fatal("failed to create model cache", zap.Error(err))
	}

	if cfg.Store == config.StoreFile && cfg.Watch {
		if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
			logger.Fatal("failed to create model dir", zap.Error(err))
		}
		w, err := repository.NewWatcher(cfg.ModelDir, cached.Invalidate, logger)
		if err != nil {
			logger.Fatal("failed to watch model dir", zap.Error(err))
		}
		go w.Run(ctx)
	}

	if art, err := cached.Load(cfg.ModelKey); err != nil {
		logger.Warn("no model loaded yet", zap.String("key", cfg.ModelKey), zap.Error(err))
	} else {
		logger.Info("model loaded",
			zap.String("key", cfg.ModelKey),
			zap.String("model", art.Model.Name()),
			zap.Strings("features", art.Features))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: newRouter(&server{
			repo:   cached,
			key:    cfg.ModelKey,
			apiKey: cfg.APIKey,
			logger: logger,
		}),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func openBackend(cfg *config.ServerConfig) (repository.Repository, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		repo, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return repository.NewRedisRepository(client, 0), client.Close, nil
	default:
		return repository.NewFileRepository(cfg.ModelDir), func() error { return nil }, nil
	}
}
