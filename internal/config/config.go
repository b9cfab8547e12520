// Package config loads service settings from defaults, an optional YAML
// file, KINSHIP_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "KINSHIP_"

type Config struct {
	Port         string        `yaml:"port"`
	DBPath       string        `yaml:"db_path"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	PhotoBaseURL string        `yaml:"photo_base_url"`
	UploadPrefix string        `yaml:"upload_prefix"`
	RefreshDelay time.Duration `yaml:"refresh_delay"`
	// RateLimit is the number of mutating requests allowed per client and
	// family each minute. Zero disables rate limiting.
	RateLimit int `yaml:"rate_limit"`
}

func Default() Config {
	return Config{
		Port:         "8080",
		DBPath:       "kinship.db",
		LogLevel:     "info",
		LogFormat:    "text",
		UploadPrefix: "/uploads",
		RefreshDelay: 500 * time.Millisecond,
		RateLimit:    60,
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then the environment as seen through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Port)
	setString("DB_PATH", &c.DBPath)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)
	setString("PHOTO_BASE_URL", &c.PhotoBaseURL)
	setString("UPLOAD_PREFIX", &c.UploadPrefix)

	if v := getenv(envPrefix + "REFRESH_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sREFRESH_DELAY: %w", envPrefix, err)
		}
		c.RefreshDelay = d
	}
	if v := getenv(envPrefix + "RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sRATE_LIMIT: %w", envPrefix, err)
		}
		c.RateLimit = n
	}
	return nil
}

// BindFlags registers one flag per setting on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("port", d.Port, "HTTP listen port")
	fs.String("db-path", d.DBPath, "SQLite database path")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "log format: text or json")
	fs.String("photo-base-url", d.PhotoBaseURL, "base URL prepended to member photo paths")
	fs.String("upload-prefix", d.UploadPrefix, "path under which bare photo file names are served")
	fs.Duration("refresh-delay", d.RefreshDelay, "quiet period before the authoritative tree refresh")
	fs.Int("rate-limit", d.RateLimit, "mutating requests per client and family per minute (0 disables)")
}

// ApplyFlags copies every flag the user set explicitly into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	str("port", &c.Port)
	str("db-path", &c.DBPath)
	str("log-level", &c.LogLevel)
	str("log-format", &c.LogFormat)
	str("photo-base-url", &c.PhotoBaseURL)
	str("upload-prefix", &c.UploadPrefix)
	if fs.Changed("refresh-delay") {
		v, err := fs.GetDuration("refresh-delay")
		errs = append(errs, err)
		c.RefreshDelay = v
	}
	if fs.Changed("rate-limit") {
		v, err := fs.GetInt("rate-limit")
		errs = append(errs, err)
		c.RateLimit = v
	}
	return errors.Join(errs...)
}

// FromFlags loads the config file named by --config, then the environment,
// then explicitly set flags.
func FromFlags(fs *pflag.FlagSet) (Config, error) {
	path, err := fs.GetString("config")
	if err != nil {
		return Config{}, err
	}
	cfg, err := Load(path, os.Getenv)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.RefreshDelay <= 0 {
		return fmt.Errorf("refresh_delay must be positive, got %s", c.RefreshDelay)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit)
	}
	return nil
}
