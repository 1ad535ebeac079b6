package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"kardex-service/internal/config"
	invHnd "kardex-service/internal/inventory/handler"
	"kardex-service/internal/inventory/ledger"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/metrics"
	serverhttp "kardex-service/server/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	logger := config.SetupLogger(cfg)

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.SettingsFile).Msg("settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, closeSnap, err := openSnapshotter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("snapshot backend")
	}
	defer closeSnap()

	st := store.New(snap, settings, logger)
	if err := st.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load snapshot")
	}

	m := metrics.New()
	engine := ledger.NewEngine(st, nil, m, logger)
	r := serverhttp.NewRouter(cfg, logger, invHnd.New(engine, logger, cfg.MaxUploadBytes()), m.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", cfg.Addr()).Str("store", cfg.StoreBackend).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("bye")
}

func openSnapshotter(ctx context.Context, cfg config.Config) (store.Snapshotter, func(), error) {
	if cfg.StoreBackend != "redis" {
		return store.FileSnapshotter{Path: cfg.StorePath}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store.RedisSnapshotter{Client: client, Key: cfg.RedisKey}, func() { _ = client.Close() }, nil
}
