// Package config loads the bot configuration from a YAML file, an optional
// .env file and HCBOT_* environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hcbot/hackchat"
)

// Config is the bot configuration.
type Config struct {
	Name       string   `yaml:"name"`
	Password   string   `yaml:"password"` // trip code password, optional
	Channels   []string `yaml:"channels"`
	Trigger    string   `yaml:"trigger"`
	URL        string   `yaml:"url"`
	GitHub     string   `yaml:"github"`
	DoNotLeave []string `yaml:"do_not_leave"`

	JoinDelay    time.Duration `yaml:"join_delay"`
	PingInterval time.Duration `yaml:"ping_interval"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Capture   string `yaml:"capture"` // transcript path, empty disables
}

func defaultConfig() *Config {
	return &Config{
		URL:          hackchat.DefaultEndpoint,
		JoinDelay:    hackchat.DefaultJoinDelay,
		PingInterval: hackchat.DefaultPingInterval,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads path, then envFile if it exists, then the environment.
// Either path may be empty to skip it.
func Load(path, envFile string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Name, "HCBOT_NAME")
	setString(&c.Password, "HCBOT_PASSWORD")
	setString(&c.Trigger, "HCBOT_TRIGGER")
	setString(&c.URL, "HCBOT_URL")
	setString(&c.GitHub, "HCBOT_GITHUB")
	setString(&c.LogLevel, "HCBOT_LOG_LEVEL")
	setString(&c.LogFormat, "HCBOT_LOG_FORMAT")
	setString(&c.Capture, "HCBOT_CAPTURE")

	if v := os.Getenv("HCBOT_CHANNELS"); v != "" {
		c.Channels = strings.Fields(v)
	}
	if v := os.Getenv("HCBOT_DO_NOT_LEAVE"); v != "" {
		c.DoNotLeave = strings.Fields(v)
	}
	if err := setDuration(&c.JoinDelay, "HCBOT_JOIN_DELAY"); err != nil {
		return err
	}
	return setDuration(&c.PingInterval, "HCBOT_PING_INTERVAL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks the fields the bot cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if len(c.Channels) == 0 {
		missing = append(missing, "channels")
	}
	if c.Trigger == "" {
		missing = append(missing, "trigger")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.JoinDelay < 0 {
		return fmt.Errorf("join_delay must not be negative")
	}
	return nil
}

// CanLeave reports whether the bot may leave channel on request.
func (c *Config) CanLeave(channel string) bool {
	for _, ch := range c.DoNotLeave {
		if ch == channel {
			return false
		}
	}
	return true
}
