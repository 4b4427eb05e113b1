// Package config loads server configuration from the environment.
//
// Values come from, in order of precedence: real environment variables,
// a .env file in the working directory (optional), and the defaults below.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// MinSessionSecretLength is the shortest accepted SESSION_SECRET.
	MinSessionSecretLength = 32
)

// Config holds every setting the server needs. mapstructure tags match the
// environment variable names.
type Config struct {
	Env       string `mapstructure:"ENV"`
	Port      int    `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	DBPath      string `mapstructure:"DB_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	SessionSecret string `mapstructure:"SESSION_SECRET"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`

	GeminiAPIKey        string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel         string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL       string        `mapstructure:"GEMINI_BASE_URL"`
	GeminiRatePerSecond float64       `mapstructure:"GEMINI_RATE_PER_SECOND"`
	ChatTimeout         time.Duration `mapstructure:"CHAT_TIMEOUT"`
	ChatStream          bool          `mapstructure:"CHAT_STREAM"`

	ContentDir string `mapstructure:"CONTENT_DIR"`
	SiteURL    string `mapstructure:"SITE_URL"`
}

var defaults = map[string]any{
	"ENV":                    "development",
	"PORT":                   4321,
	"LOG_LEVEL":              "debug",
	"LOG_FORMAT":             "text",
	"DB_DRIVER":              DriverSQLite,
	"DB_PATH":                "data/portfolio.db",
	"DATABASE_URL":           "",
	"SESSION_SECRET":         "",
	"GITHUB_CLIENT_ID":       "",
	"GITHUB_CLIENT_SECRET":   "",
	"GITHUB_CALLBACK_URL":    "",
	"GEMINI_API_KEY":         "",
	"GEMINI_MODEL":           "gemini-1.5-flash",
	"GEMINI_BASE_URL":        "https://generativelanguage.googleapis.com/v1beta",
	"GEMINI_RATE_PER_SECOND": 2.0,
	"CHAT_TIMEOUT":           "30s",
	"CHAT_STREAM":            false,
	"CONTENT_DIR":            "content/blog",
	"SITE_URL":               "http://localhost:4321",
}

// Load reads the .env file (if any) and the environment into a Config and
// validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be %q or %q", DriverSQLite, DriverPostgres))
	}

	if len(c.SessionSecret) < MinSessionSecretLength {
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, `LOG_FORMAT must be "text" or "json"`)
	}

	if c.ChatTimeout <= 0 {
		problems = append(problems, "CHAT_TIMEOUT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction controls secure cookies.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OAuthConfigured reports whether GitHub login can be offered.
func (c *Config) OAuthConfigured() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
