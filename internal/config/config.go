// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the turboSMTP command line client.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDashboardURL = "https://dashboard.serversmtp.com/api"
	defaultSendURL      = "https://api.turbo-smtp.com/api/mail/send"
)

// ErrMissingUsername is returned by Validate when no account is configured.
var ErrMissingUsername = errors.New("turbosmtp username is required")

// Config holds the complete application configuration.
type Config struct {
	TurboSMTP   TurboSMTPConfig   `yaml:"turbosmtp"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// TurboSMTPConfig holds the account and endpoint settings.
type TurboSMTPConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	DashboardURL string `yaml:"dashboard_url"`
	SendURL      string `yaml:"send_url"`
}

// CredentialsConfig controls where the password is looked up when it is
// not set directly.
type CredentialsConfig struct {
	Keyring bool `yaml:"keyring"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvVars()

	return cfg, nil
}

// Credentialed returns true if both username and password are set.
func (c *Config) Credentialed() bool {
	return c.TurboSMTP.Username != "" && c.TurboSMTP.Password != ""
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.TurboSMTP.Username == "" {
		return ErrMissingUsername
	}
	if c.TurboSMTP.DashboardURL == "" || c.TurboSMTP.SendURL == "" {
		return fmt.Errorf("dashboard_url and send_url must not be empty")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.TurboSMTP.DashboardURL = defaultDashboardURL
	c.TurboSMTP.SendURL = defaultSendURL
	c.Credentials.Keyring = true
	c.Logging.Level = "warn"
	c.Logging.Format = "text"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("TURBOSMTP_USERNAME"); v != "" {
		c.TurboSMTP.Username = v
	}
	if v := os.Getenv("TURBOSMTP_PASSWORD"); v != "" {
		c.TurboSMTP.Password = v
	}
	if v := os.Getenv("TURBOSMTP_DASHBOARD_URL"); v != "" {
		c.TurboSMTP.DashboardURL = v
	}
	if v := os.Getenv("TURBOSMTP_SEND_URL"); v != "" {
		c.TurboSMTP.SendURL = v
	}
	if v := os.Getenv("TURBOSMTP_KEYRING"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Credentials.Keyring = enabled
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}
