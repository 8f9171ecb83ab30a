package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	DataEncryptionKey     string
	Environment           string
	LogLevel              string
	LogEncoding           string
	SeedTenantName        string
	SeedAdminEmail        string
	SeedAdminPassword     string
	EmailFrom             string
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUser              string
	SMTPPassword          string
	SMTPUseTLS            bool
	RunMigrations         bool
	RunSeed               bool
	MaxBodyBytes          int64
	RateLimitPerMinute    int
	EvaluationInterval    time.Duration
	ScoringProfilesFile   string
	ScoringDefaultProfile string
	DashboardWindowDays   int
	ReportsDir            string
	MetricsEnabled        bool
}

var defaults = map[string]any{
	"app_addr":                ":8080",
	"database_url":            "",
	"jwt_secret":              "",
	"data_encryption_key":     "",
	"app_env":                 "development",
	"log_level":               "info",
	"log_encoding":            "json",
	"seed_tenant_name":        "Default Tenant",
	"seed_admin_email":        "",
	"seed_admin_password":     "",
	"email_from":              "no-reply@example.com",
	"email_enabled":           false,
	"smtp_host":               "",
	"smtp_port":               587,
	"smtp_user":               "",
	"smtp_password":           "",
	"smtp_use_tls":            true,
	"run_migrations":          true,
	"run_seed":                true,
	"max_body_bytes":          1048576,
	"rate_limit_per_minute":   60,
	"evaluation_interval":     24 * time.Hour,
	"scoring_profiles_file":   "",
	"scoring_default_profile": "",
	"dashboard_window_days":   30,
	"reports_dir":             "storage/reports",
	"metrics_enabled":         true,
}

// Load reads configuration from the environment, optionally layered over the
// file named by CONFIG_FILE.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:                  v.GetString("app_addr"),
		DatabaseURL:           v.GetString("database_url"),
		JWTSecret:             v.GetString("jwt_secret"),
		DataEncryptionKey:     v.GetString("data_encryption_key"),
		Environment:           v.GetString("app_env"),
		LogLevel:              v.GetString("log_level"),
		LogEncoding:           v.GetString("log_encoding"),
		SeedTenantName:        v.GetString("seed_tenant_name"),
		SeedAdminEmail:        v.GetString("seed_admin_email"),
		SeedAdminPassword:     v.GetString("seed_admin_password"),
		EmailFrom:             v.GetString("email_from"),
		EmailEnabled:          v.GetBool("email_enabled"),
		SMTPHost:              v.GetString("smtp_host"),
		SMTPPort:              v.GetInt("smtp_port"),
		SMTPUser:              v.GetString("smtp_user"),
		SMTPPassword:          v.GetString("smtp_password"),
		SMTPUseTLS:            v.GetBool("smtp_use_tls"),
		RunMigrations:         v.GetBool("run_migrations"),
		RunSeed:               v.GetBool("run_seed"),
		MaxBodyBytes:          v.GetInt64("max_body_bytes"),
		RateLimitPerMinute:    v.GetInt("rate_limit_per_minute"),
		EvaluationInterval:    v.GetDuration("evaluation_interval"),
		ScoringProfilesFile:   v.GetString("scoring_profiles_file"),
		ScoringDefaultProfile: v.GetString("scoring_default_profile"),
		DashboardWindowDays:   v.GetInt("dashboard_window_days"),
		ReportsDir:            v.GetString("reports_dir"),
		MetricsEnabled:        v.GetBool("metrics_enabled"),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for report encryption")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.EvaluationInterval < 0 {
		return fmt.Errorf("EVALUATION_INTERVAL must not be negative")
	}
	if c.DashboardWindowDays < 1 || c.DashboardWindowDays > 366 {
		return fmt.Errorf("DASHBOARD_WINDOW_DAYS must be between 1 and 366")
	}
	switch c.LogEncoding {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_ENCODING must be json or console")
	}
	return nil
}
