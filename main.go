package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stevemurr/collection-sync/config"
	"github.com/stevemurr/collection-sync/handler"
	"github.com/stevemurr/collection-sync/store"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func seed(ctx context.Context, s store.Store, cfg config.Config) (int, error) {
	switch {
	case cfg.SeedFile != "":
		sd, err := store.LoadSeed(cfg.SeedFile)
		if err != nil {
			return 0, err
		}
		return store.Apply(ctx, s, sd)
	case cfg.SeedDefaults:
		return store.Apply(ctx, s, store.DefaultSeed())
	}
	return 0, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	s, err := store.New(cfg.Backend, cfg.DataDir, cfg.DSN)
	if err != nil {
		logger.Fatal("failed to create store", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := seed(ctx, s, cfg)
	if err != nil {
		logger.Fatal("failed to seed store", zap.Error(err))
	}
	if n > 0 {
		logger.Info("seeded store", zap.Int("documents", n))
	}

	h := handler.New(s, handler.WithLogger(logger.Named("http")))
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler.CORS(h, cfg.AllowedOrigins),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("collection server starting",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.Backend),
		zap.String("data", cfg.DataDir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("collection server stopped")
}
