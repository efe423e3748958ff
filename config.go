package fitAuth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fitlife/fitAuth/password"
)

// Config is the complete engine configuration. Start from DefaultConfig and
// override fields; the zero value does not validate.
type Config struct {
	Remote   RemoteConfig   `mapstructure:"remote"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Password PasswordConfig `mapstructure:"password"`
	Session  SessionConfig  `mapstructure:"session"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig locates the remote auth service. When Enabled is false and no
// service is supplied to the Builder, every credential action goes straight
// to the local table.
type RemoteConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig applies to Redis-backed stores built from configuration.
// KeyPrefix namespaces every key; TabTTL bounds the life of tab-scoped keys
// so an abandoned tab's state eventually disappears.
type StorageConfig struct {
	KeyPrefix string        `mapstructure:"key_prefix"`
	TabTTL    time.Duration `mapstructure:"tab_ttl"`
}

/*
====================================
DEMO CONFIG
====================================
*/

type DemoConfig struct {
	Email         string        `mapstructure:"email"`
	Window        time.Duration `mapstructure:"window"`
	WarnAfter     time.Duration `mapstructure:"warn_after"`
	WarnAfterUses int           `mapstructure:"warn_after_uses"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig bounds the retained logs. Async forwards every activity record
// to the configured sink through a buffered dispatcher.
type AuditConfig struct {
	MaxActivities int  `mapstructure:"max_activities"`
	MaxLogins     int  `mapstructure:"max_logins"`
	Async         bool `mapstructure:"async"`
	BufferSize    int  `mapstructure:"buffer_size"`
	DropIfFull    bool `mapstructure:"drop_if_full"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Hash   password.Config `mapstructure:"hash"`
	Policy password.Policy `mapstructure:"policy"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls restore and lifecycle behavior.
//
// RestoreRemembered lets Restore silently log in with credentials saved by a
// RememberMe login. Those credentials are stored as given, unhashed, in the
// durable store; leave it off on shared devices.
type SessionConfig struct {
	RestoreRemembered bool `mapstructure:"restore_remembered"`
	EndOnHidden       bool `mapstructure:"end_on_hidden"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration the FitLife client ships with.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Enabled: true,
			BaseURL: "http://localhost:5000/api",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			KeyPrefix: "fitlife",
			TabTTL:    12 * time.Hour,
		},
		Demo: DemoConfig{
			Email:         "demo@fitlife.com",
			Window:        30 * time.Minute,
			WarnAfter:     5 * time.Minute,
			WarnAfterUses: 3,
		},
		Audit: AuditConfig{
			MaxActivities: 1000,
			MaxLogins:     500,
			Async:         false,
			BufferSize:    256,
			DropIfFull:    true,
		},
		Password: PasswordConfig{
			Hash:   password.DefaultConfig(),
			Policy: password.DefaultPolicy(),
		},
		Session: SessionConfig{
			RestoreRemembered: true,
			EndOnHidden:       false,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Remote
	if c.Remote.Timeout <= 0 {
		return errors.New("Remote Timeout must be > 0")
	}
	if c.Remote.Enabled {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Remote BaseURL must be an absolute URL when Remote is enabled")
		}
	}

	// Storage
	if strings.ContainsAny(c.Storage.KeyPrefix, " :") {
		return errors.New("Storage KeyPrefix must not contain spaces or colons")
	}
	if c.Storage.TabTTL < 0 {
		return errors.New("Storage TabTTL must be >= 0")
	}

	// Demo
	if !strings.Contains(c.Demo.Email, "@") {
		return errors.New("Demo Email must be an email address")
	}
	if c.Demo.Window <= 0 {
		return errors.New("Demo Window must be > 0")
	}
	if c.Demo.WarnAfter <= 0 || c.Demo.WarnAfter >= c.Demo.Window {
		return errors.New("Demo WarnAfter must be > 0 and shorter than Window")
	}
	if c.Demo.WarnAfterUses <= 0 {
		return errors.New("Demo WarnAfterUses must be > 0")
	}

	// Audit
	if c.Audit.MaxActivities <= 0 {
		return errors.New("Audit MaxActivities must be > 0")
	}
	if c.Audit.MaxLogins <= 0 {
		return errors.New("Audit MaxLogins must be > 0")
	}
	if c.Audit.Async && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Async is true")
	}

	// Password
	if err := c.Password.Hash.Validate(); err != nil {
		return fmt.Errorf("Password Hash: %w", err)
	}
	if c.Password.Policy.MinLength < 1 {
		return errors.New("Password Policy MinLength must be >= 1")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
