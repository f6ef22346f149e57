package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Parse.SkipOnError {
		t.Error("skip_on_error should default to true")
	}
	if cfg.Parse.StrictValidation {
		t.Error("strict_validation should default to false")
	}
	if cfg.Feed.URL != "nats://localhost:4222" {
		t.Errorf("feed url = %q", cfg.Feed.URL)
	}
	if cfg.Storage.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d", cfg.Storage.Postgres.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
parse:
  skip_on_error: false
  strict_validation: true
  report_time_pattern: 'CHECK-IN\s*(\d+)'
output:
  indent: false
storage:
  sqlite_path: /var/lib/pairings/runs.db
  postgres:
    host: db.internal
    port: 5433
feed:
  subject: rosters.incoming
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.SkipOnError {
		t.Error("skip_on_error not overridden")
	}
	if !cfg.Parse.StrictValidation {
		t.Error("strict_validation not overridden")
	}
	if cfg.Storage.Postgres.Host != "db.internal" || cfg.Storage.Postgres.Port != 5433 {
		t.Errorf("postgres = %+v", cfg.Storage.Postgres)
	}
	// Unset fields keep their defaults.
	if cfg.Storage.Postgres.Database != "pairings" {
		t.Errorf("postgres database = %q", cfg.Storage.Postgres.Database)
	}
	if cfg.Feed.Subject != "rosters.incoming" {
		t.Errorf("feed subject = %q", cfg.Feed.Subject)
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parse:\n  report_time_pattern: 'RPT('\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted an invalid regex")
	}
}

func TestLoadRejectsPatternWithoutGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parse:\n  report_time_pattern: 'RPT: \\d+'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a pattern with no capture group")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PAIRING_PG_PASSWORD", "sekrit")
	t.Setenv("PAIRING_PG_PORT", "6432")
	t.Setenv("PAIRING_NATS_URL", "nats://broker:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Postgres.Password != "sekrit" {
		t.Errorf("password = %q", cfg.Storage.Postgres.Password)
	}
	if cfg.Storage.Postgres.Port != 6432 {
		t.Errorf("port = %d", cfg.Storage.Postgres.Port)
	}
	if cfg.Feed.URL != "nats://broker:4222" {
		t.Errorf("nats url = %q", cfg.Feed.URL)
	}
}
