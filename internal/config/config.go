package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort     string
	AppMode      string
	FiberPrefork bool
	InstanceID   string

	DatabaseURL       string
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	// Ingestion
	FutureTolerance time.Duration
	EvalWorkers     int
	EvalBufferSize  int

	// Analytics sink
	SinkBufferSize int
	SinkBatchSize  int
	SinkFlushEvery time.Duration

	// Rule engine
	DefaultCooldown time.Duration

	// Scheduler
	SchedulerInterval  time.Duration
	SchedulerBatchSize int
	DispatchWorkers    int
	EventRetention     time.Duration

	// Dispatcher
	MaxSendAttempts   int
	RetryBackoffBase  time.Duration
	GenerationTimeout time.Duration

	// Transports
	AWSRegion    string
	SESFromEmail string
	GenAPIURL    string
	GenAPIKey    string
	GenModel     string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	hostname, _ := os.Hostname()

	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", ":8080"),
		AppMode:      strings.ToLower(getEnv("APP_MODE", "dev")),
		FiberPrefork: parseBoolEnv("FIBER_PREFORK", false),
		InstanceID:   getEnv("INSTANCE_ID", hostname),

		DBMaxConns:        parseInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        parseInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnLifetime: parseDurationEnv("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		DBMaxConnIdleTime: parseDurationEnv("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),

		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		FutureTolerance: parseDurationEnv("FUTURE_TOLERANCE", 5*time.Minute),
		EvalWorkers:     parseIntEnv("EVAL_WORKERS", 8),
		EvalBufferSize:  parseIntEnv("EVAL_BUFFER_SIZE", 1024),

		SinkBufferSize: parseIntEnv("SINK_BUFFER_SIZE", 10000),
		SinkBatchSize:  parseIntEnv("SINK_BATCH_SIZE", 500),
		SinkFlushEvery: parseDurationEnv("SINK_FLUSH_EVERY", 5*time.Second),

		DefaultCooldown: parseDurationEnv("DEFAULT_RULE_COOLDOWN", time.Hour),

		SchedulerInterval:  parseDurationEnv("SCHEDULER_INTERVAL", time.Minute),
		SchedulerBatchSize: parseIntEnv("SCHEDULER_BATCH_SIZE", 100),
		DispatchWorkers:    parseIntEnv("DISPATCH_WORKERS", 4),
		EventRetention:     parseDurationEnv("EVENT_RETENTION", 90*24*time.Hour),

		MaxSendAttempts:   parseIntEnv("MAX_SEND_ATTEMPTS", 3),
		RetryBackoffBase:  parseDurationEnv("RETRY_BACKOFF_BASE", 30*time.Second),
		GenerationTimeout: parseDurationEnv("GENERATION_TIMEOUT", 10*time.Second),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		GenAPIURL:    getEnv("GEN_API_URL", ""),
		GenAPIKey:    getEnv("GEN_API_KEY", ""),
		GenModel:     getEnv("GEN_MODEL", "gpt-4o-mini"),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt32Env(key string, fallback int32) int32 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return int32(parsed)
}

func parseIntEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
