package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// ErrFallbackURL indicates the fallback URL is missing or not absolute.
// Without it the shell has nothing to load, so startup aborts.
var ErrFallbackURL = errors.New("fallback URL must be an absolute http(s) URL")

// Config holds all application configuration. It is resolved once at
// process start and passed explicitly to every component.
type Config struct {
	App       AppConfig
	Endpoints EndpointConfig
	Timeouts  TimeoutConfig
	StatusAPI StatusAPIConfig
	Logging   LogConfig
	Theme     ThemeConfig
}

// AppConfig holds application identity and attribution settings.
type AppConfig struct {
	FallbackURL string `envconfig:"FALLBACK_URL" yaml:"fallback_url"`
	DevKey      string `envconfig:"ATTRIBUTION_DEV_KEY" yaml:"dev_key"`
	AppID       string `envconfig:"APP_ID" yaml:"app_id"`
	ProjectID   string `envconfig:"PROJECT_ID" yaml:"project_id"`
	StateDir    string `envconfig:"STATE_DIR" default:"/var/lib/appshell" yaml:"state_dir"`
}

// EndpointConfig holds the remote resolution service location.
type EndpointConfig struct {
	BaseURL string `envconfig:"API_BASE_URL" yaml:"base_url"`
}

// TimeoutConfig holds the resolution race deadlines.
type TimeoutConfig struct {
	DeviceIDWait     time.Duration `envconfig:"DEVICE_ID_WAIT" default:"3s" yaml:"device_id_wait"`
	ConversionWait   time.Duration `envconfig:"CONVERSION_WAIT" default:"5s" yaml:"conversion_wait"`
	Remote           time.Duration `envconfig:"REMOTE_TIMEOUT" default:"5s" yaml:"remote"`
	FallbackDeadline time.Duration `envconfig:"FALLBACK_DEADLINE" default:"10s" yaml:"fallback_deadline"`
	ProbeInterval    time.Duration `envconfig:"PROBE_INTERVAL" default:"15s" yaml:"probe_interval"`
}

// StatusAPIConfig holds the local status/metrics server configuration.
type StatusAPIConfig struct {
	Addr    string `envconfig:"STATUS_ADDR" default:"127.0.0.1:8815" yaml:"addr"`
	Enabled bool   `envconfig:"STATUS_ENABLED" default:"true" yaml:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// ThemeConfig holds optional presentation colors, forwarded to the host
// shell untouched.
type ThemeConfig struct {
	Primary    string `envconfig:"THEME_PRIMARY" yaml:"primary"`
	Background string `envconfig:"THEME_BACKGROUND" yaml:"background"`
}

// Load resolves configuration from environment variables, then applies an
// optional YAML overlay file when path is non-empty, then validates.
func Load(overlayPath string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("APPSHELL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if overlayPath != "" {
		if err := applyOverlay(&cfg, overlayPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants resolution logic depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.App.FallbackURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrFallbackURL
	}
	if c.Endpoints.BaseURL != "" {
		b, err := url.Parse(c.Endpoints.BaseURL)
		if err != nil || b.Scheme == "" || b.Host == "" {
			return fmt.Errorf("invalid API base URL %q", c.Endpoints.BaseURL)
		}
	}
	return nil
}

// SDKConfigured reports whether the attribution SDK has a developer key.
// An unconfigured SDK is not an error; attribution signals resolve empty.
func (c *Config) SDKConfigured() bool {
	return c.App.DevKey != ""
}

func applyOverlay(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config overlay: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config overlay: %w", err)
	}
	return nil
}
