// Package config loads runtime configuration: defaults, then an optional
// .env file, then an optional YAML file, then SCHOLARLOOP_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/pipeline"
	"github.com/scholarloop/scholarloop/internal/server"
	"github.com/scholarloop/scholarloop/internal/store"
)

// DefaultPath is read when no path is given and the file exists.
const DefaultPath = "scholarloop.yaml"

type Config struct {
	Log         LogConfig          `yaml:"log"`
	Store       store.Config       `yaml:"store"`
	LLM         llm.Config         `yaml:"llm"`
	Redis       RedisConfig        `yaml:"redis"`
	Entitlement entitlement.Config `yaml:"entitlement"`
	Usage       UsageConfig        `yaml:"usage"`
	Pipeline    pipeline.Config    `yaml:"pipeline"`
	Server      server.Config      `yaml:"server"`
	Tracing     TracingConfig      `yaml:"tracing"`
}

type LogConfig struct {
	// Mode is "dev", "prod" or "test".
	Mode string `yaml:"mode"`
}

// RedisConfig enables the shared regeneration-guard cache and keyed locks.
// Both stay in-process when Addr is empty.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	GuardTTL time.Duration `yaml:"guard_ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type UsageConfig struct {
	// CountFailures also appends usage events for failed model calls.
	CountFailures bool `yaml:"count_failures"`
}

type TracingConfig struct {
	// Stdout pretty-prints spans to standard output.
	Stdout      bool   `yaml:"stdout"`
	ServiceName string `yaml:"service_name"`
}

func Default() *Config {
	return &Config{
		Log:         LogConfig{Mode: "dev"},
		LLM:         llm.DefaultConfig(),
		Redis:       RedisConfig{Prefix: "scholarloop:", GuardTTL: 7 * 24 * time.Hour, LockTTL: 2 * time.Minute},
		Entitlement: entitlement.DefaultConfig(),
		Pipeline:    pipeline.DefaultConfig(),
		Server:      server.DefaultConfig(),
		Tracing:     TracingConfig{ServiceName: "scholarloop"},
	}
}

// Load builds the configuration. A missing .env or a missing file at the
// default path is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv("SCHOLARLOOP_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if cfg.LLM.Provider == "" {
		llm.DiscoverConfig(&cfg.LLM)
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	setString(&c.Log.Mode, "SCHOLARLOOP_LOG_MODE")

	setString(&c.Store.Driver, "SCHOLARLOOP_DB_DRIVER")
	setString(&c.Store.DSN, "SCHOLARLOOP_DB_DSN")
	setBool(&c.Store.Debug, "SCHOLARLOOP_DB_DEBUG")

	llm.ApplyEnv(&c.LLM)

	setString(&c.Redis.Addr, "SCHOLARLOOP_REDIS_ADDR")
	setString(&c.Redis.Password, "SCHOLARLOOP_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "SCHOLARLOOP_REDIS_DB")

	setInt(&c.Entitlement.DailyLimit, "SCHOLARLOOP_AI_DAILY_LIMIT")
	setInt(&c.Entitlement.TrialDailyLimit, "SCHOLARLOOP_AI_TRIAL_DAILY_LIMIT")

	setBool(&c.Usage.CountFailures, "SCHOLARLOOP_USAGE_COUNT_FAILURES")

	setDuration(&c.Pipeline.Timeout, "SCHOLARLOOP_PIPELINE_TIMEOUT")
	setBool(&c.Pipeline.CompleteOnDisconnect, "SCHOLARLOOP_COMPLETE_ON_DISCONNECT")

	setString(&c.Server.Addr, "SCHOLARLOOP_ADDR")
	if v := os.Getenv("SCHOLARLOOP_ALLOW_ORIGINS"); v != "" {
		c.Server.AllowOrigins = splitList(v)
	}

	setBool(&c.Tracing.Stdout, "SCHOLARLOOP_OTEL_STDOUT")
}

// Validate rejects settings that cannot work. An unconfigured model is
// allowed: generation then falls back where it can.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("store.driver: unsupported %q", c.Store.Driver)
	}
	if strings.HasPrefix(strings.ToLower(c.Store.Driver), "postgres") && c.Store.DSN == "" {
		return errors.New("store.dsn is required for postgres")
	}
	if c.Entitlement.DailyLimit < 0 || c.Entitlement.TrialDailyLimit < 0 {
		return errors.New("entitlement limits must not be negative")
	}
	if c.Pipeline.Timeout < 0 {
		return errors.New("pipeline.timeout must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		*dst = d
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
