package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinship.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
port: "9090"
db_path: /var/lib/kinship.db
refresh_delay: 2s
rate_limit: 5
`)

	cfg, err := Load(path, envMap(map[string]string{
		"KINSHIP_PORT":      "7070",
		"KINSHIP_LOG_LEVEL": "debug",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want %q", cfg.Port, "7070")
	}
	if cfg.DBPath != "/var/lib/kinship.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/var/lib/kinship.db")
	}
	if cfg.RefreshDelay != 2*time.Second {
		t.Errorf("RefreshDelay = %v, want 2s", cfg.RefreshDelay)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d, want 5", cfg.RateLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.UploadPrefix != "/uploads" {
		t.Errorf("UploadPrefix = %q, want default", cfg.UploadPrefix)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil)); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "port: [1, 2"), envMap(nil)); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := Load("", envMap(map[string]string{"KINSHIP_REFRESH_DELAY": "soon"})); err == nil {
		t.Error("expected error for bad duration")
	}
	if _, err := Load("", envMap(map[string]string{"KINSHIP_RATE_LIMIT": "many"})); err == nil {
		t.Error("expected error for bad rate limit")
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--port", "6060", "--refresh-delay", "250ms"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg := Default()
	cfg.DBPath = "from-env.db"
	if err := cfg.ApplyFlags(fs); err != nil {
		t.Fatalf("ApplyFlags: %v", err)
	}
	if cfg.Port != "6060" {
		t.Errorf("Port = %q, want %q", cfg.Port, "6060")
	}
	if cfg.RefreshDelay != 250*time.Millisecond {
		t.Errorf("RefreshDelay = %v, want 250ms", cfg.RefreshDelay)
	}
	if cfg.DBPath != "from-env.db" {
		t.Errorf("DBPath = %q, unset flag must not override", cfg.DBPath)
	}
}

func TestFromFlags(t *testing.T) {
	path := writeFile(t, "port: \"9090\"\nrate_limit: 3\n")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--config", path, "--rate-limit", "0"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := FromFlags(fs)
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %d, want 0", cfg.RateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero refresh delay", func(c *Config) { c.RefreshDelay = 0 }},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
