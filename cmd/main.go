package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OutdoorAPI/internal/config"
	"OutdoorAPI/internal/db"
	"OutdoorAPI/internal/handler"
	"OutdoorAPI/internal/logger"
	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/resolver"
	"OutdoorAPI/internal/router"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.SetDebug(*debugFlag)

	if err := run(cfg); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := model.InitRegistry(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	logger.Info("models_initialized", map[string]any{"models": registry.Names()})

	pool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	var cache resolver.Cache
	if cfg.ResultCache.Enabled() {
		client, err := db.NewRedis(ctx, cfg.ResultCache.RedisAddr)
		if err != nil {
			// the cache is optional
			logger.Warn("result_cache_disabled", map[string]any{"error": err.Error()})
		} else {
			defer client.Close()
			cache = resolver.NewRedisCache(client, cfg.ResultCache.TTL)
		}
	}

	h := handler.New(registry, resolver.New(registry, pool, cache), cfg.RequestTimeout)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
