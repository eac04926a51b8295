// Package main provides the API server entry point: serve published
// scan snapshots and wallet metric history over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whale-scanner/internal/api"
	"github.com/whale-scanner/internal/config"
	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	snapshots := storage.NewSnapshotCache(redis, cfg.Cache.PublishedTTL)

	// Metric history is optional: the API degrades gracefully without
	// ClickHouse
	var history api.HistoryProvider
	if clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse); err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable; wallet history disabled")
	} else {
		defer clickhouse.Close()
		history = storage.NewMetricsHistoryRepository(clickhouse)
	}

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		FreeTierRPS:     cfg.Server.FreeTierRPS,
		PremiumTierRPS:  cfg.Server.PremiumTierRPS,
	}, snapshots, history)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}
