// Package config loads terminal configuration from the environment, with
// optional .env support for development setups.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "POSAUTH_"

// Config is the terminal-side configuration. All variables are read with
// the POSAUTH_ prefix, e.g. POSAUTH_API_BASE_URL.
type Config struct {
	// APIBaseURL is the backend authentication API.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8973"`

	// StorePath is the credential database file.
	StorePath string `env:"STORE_PATH" envDefault:"posauth.db"`

	// InstallSecret seals the credential store at rest. It should come from
	// the OS secret store or a root-owned provisioning file, never from the
	// same directory as the database.
	InstallSecret string `env:"INSTALL_SECRET"`

	// DeviceName is the human-readable terminal name sent during
	// activation. Defaults to the hostname.
	DeviceName string `env:"DEVICE_NAME"`

	// RefreshInterval is how often the periodic expiry check runs.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"1m"`

	// RefreshThreshold is the window before expiry in which the session
	// token is proactively renewed.
	RefreshThreshold time.Duration `env:"REFRESH_THRESHOLD" envDefault:"5m"`

	// DevServerAddr is the listen address for `posauth devserver`.
	DevServerAddr string `env:"DEVSERVER_ADDR" envDefault:":8973"`
}

// Load reads configuration from the environment, after loading a .env file
// if one exists in the working directory.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize applies guardrails to loaded values: intervals are clamped to
// sane minimums and the device name falls back to the hostname.
func (c *Config) Sanitize() {
	if c.RefreshInterval < 5*time.Second {
		c.RefreshInterval = 5 * time.Second
	}
	if c.RefreshThreshold < c.RefreshInterval {
		c.RefreshThreshold = c.RefreshInterval
	}
	if c.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			c.DeviceName = host
		} else {
			c.DeviceName = "pos-terminal"
		}
	}
}
