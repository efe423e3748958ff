// Package config loads the fitauth command configuration from an optional
// .env file, an optional config file and FITAUTH_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	fitAuth "github.com/fitlife/fitAuth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable, e.g. FITAUTH_REMOTE_BASE_URL.
const EnvPrefix = "FITAUTH"

// Config is the command configuration.
type Config struct {
	Auth  fitAuth.Config
	Log   LogConfig
	Redis RedisConfig
	Stub  StubConfig
}

type LogConfig struct {
	Level       string
	Development bool
}

// RedisConfig selects the durable store. With Addr empty the command runs on
// an in-process miniredis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StubConfig configures the stand-in auth service.
type StubConfig struct {
	Addr       string
	SigningKey string
	TokenTTL   time.Duration
}

// Load reads envFile (skipped when missing) into the process environment,
// then configFile when non-empty, then the environment.
func Load(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := fitAuth.DefaultConfig()

	// Remote
	v.SetDefault("remote.enabled", d.Remote.Enabled)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)

	// Storage
	v.SetDefault("storage.key_prefix", d.Storage.KeyPrefix)
	v.SetDefault("storage.tab_ttl", d.Storage.TabTTL)

	// Demo
	v.SetDefault("demo.email", d.Demo.Email)
	v.SetDefault("demo.window", d.Demo.Window)
	v.SetDefault("demo.warn_after", d.Demo.WarnAfter)
	v.SetDefault("demo.warn_after_uses", d.Demo.WarnAfterUses)

	// Audit
	v.SetDefault("audit.max_activities", d.Audit.MaxActivities)
	v.SetDefault("audit.max_logins", d.Audit.MaxLogins)
	v.SetDefault("audit.async", d.Audit.Async)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)

	// Password
	v.SetDefault("password.hash.memory", d.Password.Hash.Memory)
	v.SetDefault("password.hash.time", d.Password.Hash.Time)
	v.SetDefault("password.hash.parallelism", d.Password.Hash.Parallelism)
	v.SetDefault("password.hash.salt_length", d.Password.Hash.SaltLength)
	v.SetDefault("password.hash.key_length", d.Password.Hash.KeyLength)
	v.SetDefault("password.policy.min_length", d.Password.Policy.MinLength)
	v.SetDefault("password.policy.require_letter", d.Password.Policy.RequireLetter)
	v.SetDefault("password.policy.require_digit", d.Password.Policy.RequireDigit)

	// Session
	v.SetDefault("session.restore_remembered", d.Session.RestoreRemembered)
	v.SetDefault("session.end_on_hidden", d.Session.EndOnHidden)

	// Metrics
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)

	// Command
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("stub.addr", ":5000")
	v.SetDefault("stub.signing_key", "fitlife-dev-signing-key")
	v.SetDefault("stub.token_ttl", time.Hour)
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	a := &cfg.Auth

	a.Remote.Enabled = v.GetBool("remote.enabled")
	a.Remote.BaseURL = v.GetString("remote.base_url")
	a.Remote.Timeout = v.GetDuration("remote.timeout")

	a.Storage.KeyPrefix = v.GetString("storage.key_prefix")
	a.Storage.TabTTL = v.GetDuration("storage.tab_ttl")

	a.Demo.Email = v.GetString("demo.email")
	a.Demo.Window = v.GetDuration("demo.window")
	a.Demo.WarnAfter = v.GetDuration("demo.warn_after")
	a.Demo.WarnAfterUses = v.GetInt("demo.warn_after_uses")

	a.Audit.MaxActivities = v.GetInt("audit.max_activities")
	a.Audit.MaxLogins = v.GetInt("audit.max_logins")
	a.Audit.Async = v.GetBool("audit.async")
	a.Audit.BufferSize = v.GetInt("audit.buffer_size")
	a.Audit.DropIfFull = v.GetBool("audit.drop_if_full")

	parallelism := v.GetUint("password.hash.parallelism")
	if parallelism > 255 {
		return fmt.Errorf("password.hash.parallelism %d out of range", parallelism)
	}
	a.Password.Hash.Memory = v.GetUint32("password.hash.memory")
	a.Password.Hash.Time = v.GetUint32("password.hash.time")
	a.Password.Hash.Parallelism = uint8(parallelism)
	a.Password.Hash.SaltLength = v.GetUint32("password.hash.salt_length")
	a.Password.Hash.KeyLength = v.GetUint32("password.hash.key_length")
	a.Password.Policy.MinLength = v.GetInt("password.policy.min_length")
	a.Password.Policy.RequireLetter = v.GetBool("password.policy.require_letter")
	a.Password.Policy.RequireDigit = v.GetBool("password.policy.require_digit")

	a.Session.RestoreRemembered = v.GetBool("session.restore_remembered")
	a.Session.EndOnHidden = v.GetBool("session.end_on_hidden")

	a.Metrics.Enabled = v.GetBool("metrics.enabled")
	a.Metrics.EnableLatencyHistograms = v.GetBool("metrics.enable_latency_histograms")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Development = v.GetBool("log.development")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")

	cfg.Stub.Addr = v.GetString("stub.addr")
	cfg.Stub.SigningKey = v.GetString("stub.signing_key")
	cfg.Stub.TokenTTL = v.GetDuration("stub.token_ttl")
	return nil
}

// Validate checks the engine section and the command sections.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must be >= 0")
	}
	if c.Stub.TokenTTL <= 0 {
		return errors.New("stub.token_ttl must be > 0")
	}
	if len(c.Stub.SigningKey) < 16 {
		return errors.New("stub.signing_key must be at least 16 bytes")
	}
	return nil
}

// NewLogger builds the zap logger described by c.Log.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
