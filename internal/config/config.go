// Package config provides configuration management for the whale scanner.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Scanner  ScannerConfig
	Client   ClientConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// ScannerConfig holds scan run configuration
type ScannerConfig struct {
	InfoURL            string
	LeaderboardURL     string
	TopN               int
	MinAccountValueUSD float64
	ActiveDays         int
	BatchSize          int
	MinBatchSize       int
	CandidateLimit     int // 0 means no limit
	SkipPortfolio      bool
	FillWorkers        int
	OutputDir          string
}

// ClientConfig holds outbound HTTP client configuration
type ClientConfig struct {
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Jitter      time.Duration
	MinInterval time.Duration // pacing floor between requests
	MaxInterval time.Duration // pacing ceiling under sustained errors
	UserAgent   string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache TTL configuration
type CacheConfig struct {
	PublishedTTL time.Duration // published ranking payloads
	StateTTL     time.Duration // per-address clearinghouse state
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host           string
	Port           string
	FreeTierRPS    int
	PremiumTierRPS int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Scanner: ScannerConfig{
			InfoURL:            getEnv("HL_INFO_URL", "https://api.hyperliquid.xyz/info"),
			LeaderboardURL:     getEnv("HL_LEADERBOARD_URL", "https://stats-data.hyperliquid.xyz/Mainnet/leaderboard"),
			TopN:               getEnvAsInt("SCAN_TOP_N", 200),
			MinAccountValueUSD: getEnvAsFloat("SCAN_MIN_ACCOUNT_VALUE", 50_000),
			ActiveDays:         getEnvAsInt("SCAN_ACTIVE_DAYS", 14),
			BatchSize:          getEnvAsInt("SCAN_BATCH_SIZE", 25),
			MinBatchSize:       getEnvAsInt("SCAN_MIN_BATCH_SIZE", 5),
			CandidateLimit:     getEnvAsInt("SCAN_CANDIDATE_LIMIT", 0),
			SkipPortfolio:      getEnvAsBool("SCAN_SKIP_PORTFOLIO", false),
			FillWorkers:        getEnvAsInt("SCAN_FILL_WORKERS", 4),
			OutputDir:          getEnv("SCAN_OUTPUT_DIR", "data"),
		},
		Client: ClientConfig{
			Timeout:     getEnvAsDuration("HTTP_TIMEOUT", 20*time.Second),
			Retries:     getEnvAsInt("HTTP_RETRIES", 4),
			BackoffBase: getEnvAsDuration("HTTP_BACKOFF_BASE", 800*time.Millisecond),
			BackoffCap:  getEnvAsDuration("HTTP_BACKOFF_CAP", 10*time.Second),
			Jitter:      getEnvAsDuration("HTTP_BACKOFF_JITTER", 250*time.Millisecond),
			MinInterval: getEnvAsDuration("HTTP_MIN_INTERVAL", 180*time.Millisecond),
			MaxInterval: getEnvAsDuration("HTTP_MAX_INTERVAL", 1200*time.Millisecond),
			UserAgent:   getEnv("HTTP_USER_AGENT", "WhaleScanner/1.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "whale_scanner"),
				User:           getEnv("POSTGRES_USER", "scanner"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "whale_scanner"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			PublishedTTL: getEnvAsDuration("CACHE_PUBLISHED_TTL", 2*time.Hour),
			StateTTL:     getEnvAsDuration("CACHE_STATE_TTL", 10*time.Minute),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			FreeTierRPS:    getEnvAsInt("RATE_LIMIT_FREE_RPS", 5),
			PremiumTierRPS: getEnvAsInt("RATE_LIMIT_PREMIUM_RPS", 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
