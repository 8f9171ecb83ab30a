package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/perfeval")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.EvaluationInterval != 24*time.Hour {
		t.Fatalf("expected daily evaluation interval, got %s", cfg.EvaluationInterval)
	}
	if cfg.DashboardWindowDays != 30 {
		t.Fatalf("expected 30 day dashboard window, got %d", cfg.DashboardWindowDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("EVALUATION_INTERVAL", "1h")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("SCORING_DEFAULT_PROFILE", "rated")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.EvaluationInterval != time.Hour || !cfg.EmailEnabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.ScoringDefaultProfile != "rated" {
		t.Fatalf("expected rated profile, got %q", cfg.ScoringDefaultProfile)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfeval.yaml")
	content := "database_url: postgres://file/perfeval\nrate_limit_per_minute: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/perfeval" {
		t.Fatalf("expected database url from file, got %q", cfg.DatabaseURL)
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Fatalf("expected env to win over file, got %d", cfg.RateLimitPerMinute)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabaseURL:         "postgres://localhost/perfeval",
		MaxBodyBytes:        4096,
		RateLimitPerMinute:  60,
		DashboardWindowDays: 30,
		LogEncoding:         "json",
	}
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
		{name: "zero dashboard window", mutate: func(c *Config) { c.DashboardWindowDays = 0 }, wantErr: true},
		{name: "bad encoding", mutate: func(c *Config) { c.LogEncoding = "xml" }, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
