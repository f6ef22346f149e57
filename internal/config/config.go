// Package config loads the YAML configuration file and applies
// environment overrides for credentials and endpoints.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"pairing_parser/internal/storage"
)

// ParseConfig controls parser behavior.
type ParseConfig struct {
	SkipOnError        bool   `yaml:"skip_on_error"`
	StrictValidation   bool   `yaml:"strict_validation"`
	ReportTimePattern  string `yaml:"report_time_pattern"`
	ReleaseTimePattern string `yaml:"release_time_pattern"`
}

// OutputConfig controls JSON output.
type OutputConfig struct {
	Indent bool `yaml:"indent"`
	Backup bool `yaml:"backup"`
}

// FeedConfig holds NATS settings for watch mode.
type FeedConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	OutSubject string `yaml:"out_subject"`
	QueueGroup string `yaml:"queue_group"`
}

// Config is the full application configuration.
type Config struct {
	Parse   ParseConfig    `yaml:"parse"`
	Output  OutputConfig   `yaml:"output"`
	Storage storage.Config `yaml:"storage"`
	Feed    FeedConfig     `yaml:"feed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			SkipOnError: true,
		},
		Output: OutputConfig{
			Indent: true,
			Backup: true,
		},
		Storage: storage.DefaultConfig(),
		Feed: FeedConfig{
			URL:        "nats://localhost:4222",
			Subject:    "pairings.raw",
			OutSubject: "pairings.parsed",
			QueueGroup: "pairing-parser",
		},
	}
}

// Load reads and validates a configuration file. An empty path returns
// the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration, compiling any custom marker
// patterns to fail fast on bad regexes.
func Validate(cfg *Config) error {
	if err := validateMarkerPattern(cfg.Parse.ReportTimePattern); err != nil {
		return fmt.Errorf("report_time_pattern: %w", err)
	}
	if err := validateMarkerPattern(cfg.Parse.ReleaseTimePattern); err != nil {
		return fmt.Errorf("release_time_pattern: %w", err)
	}
	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if cfg.Feed.Subject == "" {
		return fmt.Errorf("feed.subject is required")
	}
	return nil
}

func validateMarkerPattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("pattern must have a capture group for the HHMM value")
	}
	return nil
}

// applyEnvironmentOverrides lets credentials and endpoints come from the
// environment so they stay out of config files.
func (c *Config) applyEnvironmentOverrides() {
	setString(&c.Storage.SQLitePath, "PAIRING_SQLITE_PATH")
	setString(&c.Storage.Postgres.Host, "PAIRING_PG_HOST")
	setInt(&c.Storage.Postgres.Port, "PAIRING_PG_PORT")
	setString(&c.Storage.Postgres.Database, "PAIRING_PG_DATABASE")
	setString(&c.Storage.Postgres.User, "PAIRING_PG_USER")
	setString(&c.Storage.Postgres.Password, "PAIRING_PG_PASSWORD")
	setString(&c.Storage.ClickHouse.Host, "PAIRING_CH_HOST")
	setInt(&c.Storage.ClickHouse.Port, "PAIRING_CH_PORT")
	setString(&c.Storage.ClickHouse.Database, "PAIRING_CH_DATABASE")
	setString(&c.Storage.ClickHouse.User, "PAIRING_CH_USER")
	setString(&c.Storage.ClickHouse.Password, "PAIRING_CH_PASSWORD")
	setString(&c.Storage.Mongo.URI, "PAIRING_MONGO_URI")
	setString(&c.Storage.Mongo.Database, "PAIRING_MONGO_DATABASE")
	setString(&c.Feed.URL, "PAIRING_NATS_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
