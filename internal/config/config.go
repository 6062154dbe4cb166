// Package config loads analyzer settings from built-in defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"degenjudge/internal/retry"
)

// Metadata store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// DefaultRPCEndpoint is the Helius mainnet RPC URL.
const DefaultRPCEndpoint = "https://mainnet.helius-rpc.com/"

// Config holds every runtime setting.
type Config struct {
	RPC      RPCConfig      `yaml:"rpc"`
	Queue    QueueConfig    `yaml:"queue"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Retry    RetryConfig    `yaml:"retry"`
	Metadata MetadataConfig `yaml:"metadata"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type RPCConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	MinDelay      time.Duration `yaml:"min_delay"`
}

type AnalysisConfig struct {
	SignatureLimit int           `yaml:"signature_limit"`
	BatchSize      int           `yaml:"batch_size"`
	BatchPause     time.Duration `yaml:"batch_pause"`
	TopN           int           `yaml:"top_n"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RetryConfig struct {
	Transaction PolicyConfig `yaml:"transaction"`
	Metadata    PolicyConfig `yaml:"metadata"`
}

// PolicyConfig is the YAML form of retry.Policy.
type PolicyConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// Policy converts p to a retry.Policy.
func (p PolicyConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  p.MaxAttempts,
		InitialDelay: p.InitialDelay,
		Multiplier:   p.Multiplier,
	}
}

type MetadataConfig struct {
	Store       string        `yaml:"store"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RPC: RPCConfig{
			Endpoint: DefaultRPCEndpoint,
			Timeout:  30 * time.Second,
		},
		Queue: QueueConfig{
			MaxConcurrent: 4,
			MinDelay:      75 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			SignatureLimit: 75,
			BatchSize:      8,
			BatchPause:     800 * time.Millisecond,
			TopN:           20,
			Timeout:        2 * time.Minute,
		},
		Retry: RetryConfig{
			Transaction: PolicyConfig{MaxAttempts: 3, InitialDelay: 800 * time.Millisecond, Multiplier: 1.5},
			Metadata:    PolicyConfig{MaxAttempts: 3, InitialDelay: 1500 * time.Millisecond, Multiplier: 1.5},
		},
		Metadata: MetadataConfig{
			Store: StoreMemory,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present; path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	setString(lookup, "HELIUS_API_KEY", &c.RPC.APIKey)
	setString(lookup, "RPC_ENDPOINT", &c.RPC.Endpoint)
	setString(lookup, "METADATA_STORE", &c.Metadata.Store)
	setString(lookup, "POSTGRES_DSN", &c.Metadata.PostgresDSN)
	setString(lookup, "REDIS_ADDR", &c.Metadata.RedisAddr)
	setString(lookup, "OPENAI_API_KEY", &c.OpenAI.APIKey)
	setString(lookup, "OPENAI_MODEL", &c.OpenAI.Model)
	setString(lookup, "OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	setString(lookup, "SERVER_ADDR", &c.Server.Addr)
	setString(lookup, "LOG_LEVEL", &c.Log.Level)
	setString(lookup, "LOG_FORMAT", &c.Log.Format)

	if err := setInt(lookup, "SIGNATURE_LIMIT", &c.Analysis.SignatureLimit); err != nil {
		return err
	}
	if err := setInt(lookup, "QUEUE_MAX_CONCURRENT", &c.Queue.MaxConcurrent); err != nil {
		return err
	}
	return setDuration(lookup, "ANALYSIS_TIMEOUT", &c.Analysis.Timeout)
}

func setString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func setInt(lookup lookupFunc, key string, dst *int) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(lookup lookupFunc, key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks limits and cross-field requirements.
func (c *Config) Validate() error {
	if c.RPC.Endpoint == "" {
		return errors.New("rpc.endpoint is required")
	}
	positive := []struct {
		name  string
		value int
	}{
		{"queue.max_concurrent", c.Queue.MaxConcurrent},
		{"analysis.signature_limit", c.Analysis.SignatureLimit},
		{"analysis.batch_size", c.Analysis.BatchSize},
		{"analysis.top_n", c.Analysis.TopN},
		{"retry.transaction.max_attempts", c.Retry.Transaction.MaxAttempts},
		{"retry.metadata.max_attempts", c.Retry.Metadata.MaxAttempts},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if c.Queue.MinDelay < 0 || c.Analysis.BatchPause < 0 || c.Analysis.Timeout < 0 {
		return errors.New("durations must not be negative")
	}

	switch c.Metadata.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Metadata.PostgresDSN == "" {
			return errors.New("metadata.postgres_dsn is required for the postgres store")
		}
	case StoreRedis:
		if c.Metadata.RedisAddr == "" {
			return errors.New("metadata.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown metadata store %q", c.Metadata.Store)
	}
	return nil
}
