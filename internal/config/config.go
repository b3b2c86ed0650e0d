// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Options OptionsConfig `mapstructure:"options"`
	Store   StoreConfig   `mapstructure:"store"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ArchiveConfig points at the public archive and its serving hosts.
type ArchiveConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	DownloadHost   string `mapstructure:"download_host"`
	StorageHost    string `mapstructure:"storage_host"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the archive client timeout.
func (a ArchiveConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// OptionsConfig mirrors the per-user toggles consulted by the page handlers.
type OptionsConfig struct {
	RecapEnabled         bool `mapstructure:"recap_enabled"`
	IAStyleFilenames     bool `mapstructure:"ia_style_filenames"`
	LawyerStyleFilenames bool `mapstructure:"lawyer_style_filenames"`
	ExternalPDF          bool `mapstructure:"external_pdf"`
}

// StoreConfig selects the tab store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// TTL returns the tab-state expiry for the memory backend.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// FetchConfig configures the page fetcher used by the inspect command and
// the capture convergence path.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the fetcher request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("archive.base_url", "https://www.courtlistener.com/api/rest/v4")
	v.SetDefault("archive.download_host", "https://www.courtlistener.com")
	v.SetDefault("archive.storage_host", "https://storage.courtlistener.com")
	v.SetDefault("archive.timeout_seconds", 30)
	v.SetDefault("options.recap_enabled", true)
	v.SetDefault("options.ia_style_filenames", true)
	v.SetDefault("options.lawyer_style_filenames", false)
	v.SetDefault("options.external_pdf", false)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.ttl_hours", 12)
	v.SetDefault("fetch.user_agent", "recapd/1.0")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("logging.development", false)
}

// Validate enforces invariants across the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be positive")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.enabled requires auth.api_key")
	}
	if c.Archive.BaseURL == "" {
		return fmt.Errorf("archive.base_url is required")
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return fmt.Errorf("archive.timeout_seconds must be positive")
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.backend sqlite requires store.path")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Options.IAStyleFilenames && c.Options.LawyerStyleFilenames {
		return fmt.Errorf("options.ia_style_filenames and options.lawyer_style_filenames are mutually exclusive")
	}
	return nil
}
