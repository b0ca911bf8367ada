// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

const envPrefix = "TINYUTTERANCES_"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken      string
	APIBaseURL       string
	HTTPCache        bool
	FetchConcurrency int
	Location         *time.Location
	SanitizeBodies   bool
	DBPath           string
	ListenAddr       string
	RateLimit        float64
	RateBurst        int
	Site             model.Site
	LogLevel         slog.Level
	LogFormat        string
}

// HasDiagnosticsStore returns true when hydration reports should be persisted.
func (c *Config) HasDiagnosticsStore() bool {
	return c.DBPath != ""
}

// ValidateSite reports whether the site settings are complete enough to build
// the blog. Only the build command needs them.
func (c *Config) ValidateSite() error {
	if c.Site.Owner == "" {
		return fmt.Errorf("%sSITE_OWNER is required to build the site", envPrefix)
	}
	if c.Site.Repo == "" {
		return fmt.Errorf("%sSITE_REPO is required to build the site", envPrefix)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Defaults: TINYUTTERANCES_FETCH_CONCURRENCY (8),
// TINYUTTERANCES_LISTEN_ADDR (127.0.0.1:8080), TINYUTTERANCES_RATE_LIMIT (5 req/s),
// TINYUTTERANCES_RATE_BURST (10), TINYUTTERANCES_SITE_LABEL (article),
// TINYUTTERANCES_SITE_MAX_COMMENTS (50), TINYUTTERANCES_LOG_FORMAT (text).
// An empty TINYUTTERANCES_DB_PATH disables the diagnostics store.
func Load() (*Config, error) {
	cfg := &Config{
		GitHubToken:      os.Getenv(envPrefix + "GITHUB_TOKEN"),
		APIBaseURL:       os.Getenv(envPrefix + "API_BASE_URL"),
		FetchConcurrency: 8,
		Location:         time.Local,
		DBPath:           os.Getenv(envPrefix + "DB_PATH"),
		ListenAddr:       "127.0.0.1:8080",
		RateLimit:        5,
		RateBurst:        10,
		Site: model.Site{
			Title:       "Blog",
			Owner:       os.Getenv(envPrefix + "SITE_OWNER"),
			Repo:        os.Getenv(envPrefix + "SITE_REPO"),
			Label:       "article",
			MaxComments: 50,
		},
		LogLevel:  slog.LevelInfo,
		LogFormat: "text",
	}

	var err error

	if cfg.HTTPCache, err = boolVar("HTTP_CACHE", false); err != nil {
		return nil, err
	}
	if cfg.SanitizeBodies, err = boolVar("SANITIZE_BODIES", false); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = positiveIntVar("FETCH_CONCURRENCY", cfg.FetchConcurrency); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = positiveIntVar("RATE_BURST", cfg.RateBurst); err != nil {
		return nil, err
	}
	if cfg.Site.MaxComments, err = positiveIntVar("SITE_MAX_COMMENTS", cfg.Site.MaxComments); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(envPrefix + "RATE_LIMIT"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%sRATE_LIMIT must be a positive number, got %q", envPrefix, v)
		}
		cfg.RateLimit = parsed
	}

	if v, ok := os.LookupEnv(envPrefix + "TIMEZONE"); ok && v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("%sTIMEZONE has invalid zone %q: %w", envPrefix, v, err)
		}
		cfg.Location = loc
	}

	if v, ok := os.LookupEnv(envPrefix + "LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv(envPrefix + "SITE_LABEL"); ok && v != "" {
		cfg.Site.Label = v
	}
	if v, ok := os.LookupEnv(envPrefix + "SITE_TITLE"); ok && v != "" {
		cfg.Site.Title = v
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%sLOG_LEVEL has invalid level %q: %w", envPrefix, v, err)
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_FORMAT"); ok && v != "" {
		format := strings.ToLower(v)
		if format != "text" && format != "json" {
			return nil, fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", envPrefix, v)
		}
		cfg.LogFormat = format
	}

	return cfg, nil
}

func boolVar(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s%s has invalid boolean %q: %w", envPrefix, name, v, err)
	}
	return parsed, nil
}

func positiveIntVar(name string, def int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s%s must be a positive integer, got %q", envPrefix, name, v)
	}
	return parsed, nil
}
