package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the complete Liftwatch configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server"`

	// Tier determines feature availability
	Tier Tier `yaml:"tier"`

	// Analysis tunes the fleet aggregator and scheduler
	Analysis AnalysisConfig `yaml:"analysis"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// AnalysisConfig holds fleet analysis settings.
type AnalysisConfig struct {
	// LookbackDays is the fault window fetched for a fleet run.
	// Values below MinLookbackDays are raised to it.
	LookbackDays int `yaml:"lookbackDays"`

	// MaxWorkers bounds concurrent per-asset scoring.
	MaxWorkers int `yaml:"maxWorkers"`

	// Schedule is a cron spec for background fleet analysis; empty disables it.
	Schedule string `yaml:"schedule"`

	// SnapshotTTL is how long the latest scheduled summary stays cached.
	SnapshotTTL int `yaml:"snapshotTTL"` // seconds
}

// MinLookbackDays is the shortest fault window the scorer can work with.
const MinLookbackDays = 90

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-memory cache + channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + Redis + NATS
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		Tier: TierCommunity,
		Analysis: AnalysisConfig{
			LookbackDays: MinLookbackDays,
			MaxWorkers:   16,
			Schedule:     "0 */6 * * *",
			SnapshotTTL:  24 * 3600,
		},
		Repository: RepositoryConfig{
			Driver:        "sqlite",
			SQLitePath:    "./liftwatch.db",
			AssetPageSize: 5000,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     300,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "liftwatch",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:        "postgres",
		PostgresHost:  "localhost",
		PostgresPort:  5432,
		PostgresDB:    "liftwatch",
		AssetPageSize: 20000,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   100,
		LocalTTL:       60,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// LoadConfig builds the configuration: tier defaults, then the YAML file at
// path (if any), then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if os.Getenv("LIFTWATCH_TIER") == string(TierPro) {
		cfg = ProConfig()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.normalize()

	return cfg, nil
}

// ApplyEnv overrides settings from LIFTWATCH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LIFTWATCH_DEBUG"); v == "true" {
		c.Logging.Level = "debug"
	}
	if v := os.Getenv("LIFTWATCH_DB_PATH"); v != "" {
		c.Repository.SQLitePath = v
	}
	if v := os.Getenv("LIFTWATCH_POSTGRES_HOST"); v != "" {
		c.Repository.PostgresHost = v
	}
	if v := os.Getenv("LIFTWATCH_POSTGRES_USER"); v != "" {
		c.Repository.PostgresUser = v
	}
	if v := os.Getenv("LIFTWATCH_POSTGRES_PASSWORD"); v != "" {
		c.Repository.PostgresPassword = v
	}
	if v := os.Getenv("LIFTWATCH_POSTGRES_DB"); v != "" {
		c.Repository.PostgresDB = v
	}
	if v := os.Getenv("LIFTWATCH_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("LIFTWATCH_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := os.Getenv("LIFTWATCH_KAFKA_BROKERS"); v != "" {
		c.EventBus.Type = "kafka"
		c.EventBus.KafkaBrokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("LIFTWATCH_SCHEDULE"); ok {
		c.Analysis.Schedule = v
	}
	if v := os.Getenv("LIFTWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) normalize() {
	if c.Analysis.LookbackDays < MinLookbackDays {
		c.Analysis.LookbackDays = MinLookbackDays
	}
	if c.Analysis.MaxWorkers <= 0 {
		c.Analysis.MaxWorkers = 16
	}
}
