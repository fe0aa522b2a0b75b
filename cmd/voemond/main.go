package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"voe-monitor-backend/config"
	"voe-monitor-backend/internal/api"
	"voe-monitor-backend/internal/db"
	"voe-monitor-backend/internal/fetch"
	"voe-monitor-backend/internal/flaresolver"
	"voe-monitor-backend/internal/logging"
	"voe-monitor-backend/internal/notify"
	"voe-monitor-backend/internal/schedule"
	"voe-monitor-backend/internal/store"
	"voe-monitor-backend/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment)
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	solver := flaresolver.NewClient(&cfg.FlareSolver, logger)
	fetcher := fetch.NewClient(&cfg.Fetcher, cfg.FlareSolver.OperatingMode, solver, logger)
	parser := schedule.NewParser(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := &worker.Settings{}

	if cfg.Worker.Enabled {
		if cfg.Telegram.Token == "" {
			logger.Fatal("telegram.token must be configured when the worker is enabled")
		}
		notifier, err := notify.NewTelegramNotifier(&cfg.Telegram, logger)
		if err != nil {
			logger.Fatal("failed to initialize telegram notifier", zap.Error(err))
		}
		w := worker.New(&cfg.Worker, appStore, fetcher, parser, notifier, settings, logger)
		go w.Run(ctx)
	} else {
		logger.Info("change-detection worker is disabled")
	}

	handler := api.NewHandler(appStore, fetcher, parser, settings, cfg.Worker.MaxDays, logger)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
