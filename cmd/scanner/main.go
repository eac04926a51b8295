// Package main provides the scan entry point: discover whale wallets,
// compute their metrics, and publish ranked snapshots.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/whale-scanner/internal/config"
	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/ratelimit"
	"github.com/whale-scanner/internal/service"
	"github.com/whale-scanner/internal/storage"
)

func main() {
	var (
		mode      = flag.String("mode", models.ModeActive, "Which cohorts to export: active, inactive, both")
		autoFind  = flag.Bool("auto-find", false, "Discover addresses from the leaderboard")
		addresses = flag.String("addresses", "", "Comma-separated addresses (0x...) to include")
		file      = flag.String("file", "", "Text file with addresses, one per line")
		skipDB    = flag.Bool("skip-db", false, "Do not persist the run to Postgres/ClickHouse/Redis")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	if *mode != models.ModeActive && *mode != models.ModeInactive && *mode != models.ModeBoth {
		logger.WithField("mode", *mode).Fatal("Unknown mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	// Outbound client with shared adaptive pacing
	pacer := ratelimit.NewAdaptivePacer(cfg.Client.MinInterval, cfg.Client.MaxInterval)
	client := hyperliquid.NewClient(&cfg.Client, &cfg.Scanner, pacer)

	// Snapshot sinks: JSON files always, Redis and databases unless skipped
	writer, err := storage.NewSnapshotWriter(cfg.Scanner.OutputDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to prepare output directory")
	}
	sinks := []service.SnapshotSink{writer}

	var recorder service.RunRecorder
	var stateStore service.StateStore
	if !*skipDB {
		postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()

		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		redis, err := storage.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()

		history := storage.NewMetricsHistoryRepository(clickhouse)
		if err := history.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to prepare ClickHouse schema")
		}

		recorder = storage.NewRecorder(storage.NewRunRepository(postgres), history)
		sinks = append(sinks, storage.NewSnapshotCache(redis, cfg.Cache.PublishedTTL))
		stateStore = storage.NewStateCache(redis, cfg.Cache.StateTTL)
	}

	scanner := service.NewScanner(&cfg.Scanner, client, recorder, sinks...)
	if stateStore != nil {
		scanner.WithStateStore(stateStore)
	}

	seeds := splitAddresses(*addresses)
	if *file != "" {
		fromFile, err := readAddressFile(*file)
		if err != nil {
			logger.WithError(err).WithField("file", *file).Fatal("Failed to read address file")
		}
		seeds = append(seeds, fromFile...)
	}

	addrs, err := scanner.DiscoverAddresses(ctx, seeds, *autoFind)
	if err != nil {
		logger.WithError(err).Fatal("Address discovery failed")
	}
	logger.WithField("addresses", len(addrs)).Info("Addresses collected")

	result, err := scanner.Run(ctx, addrs, *mode)
	if err != nil {
		logger.WithError(err).Fatal("Scan failed")
	}

	logger.WithFields(map[string]interface{}{
		"run_id":   result.Meta.RunID,
		"active":   len(result.Active),
		"inactive": len(result.Inactive),
		"files":    len(result.Meta.Files),
		"out_dir":  writer.Dir(),
	}).Info("Scan published")
}

func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// readAddressFile reads one address per line, skipping blanks and
// #-comments.
func readAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
