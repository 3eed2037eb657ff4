// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// ProviderConfig holds supply-provider API settings.
type ProviderConfig struct {
	SolvexURL     string        // default "https://api.solvex.bg"
	TCTURL        string        // default "https://api.tct.travel"
	OpenGreeceURL string        // default "https://api.opengreece.gr"
	FetchTimeout  time.Duration // default 8s
}

// ScraperConfig holds competitor scraping settings.
type ScraperConfig struct {
	Headless     bool          // run Chrome headless; default true
	NavTimeout   time.Duration // per-target navigation cap; default 90s
	MinDelay     time.Duration // inter-target pacing lower bound; default 1s
	MaxDelay     time.Duration // inter-target pacing upper bound; default 3s
	Destinations []string      // destinations covered by scheduled sessions
	LeadDays     int           // scheduled search check-in offset; default 14
	StayNights   int           // scheduled search stay length; default 7
}

// SchedulerConfig holds background loop settings.
type SchedulerConfig struct {
	ExpirySweepInterval time.Duration // proposal expiry sweep cadence; default 10m
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Provider  ProviderConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Scraper.MinDelay > c.Scraper.MaxDelay {
		errs = append(errs, fmt.Errorf(
			"scraper delay bounds inverted: min %s > max %s",
			c.Scraper.MinDelay, c.Scraper.MaxDelay,
		))
	}

	if c.Scraper.LeadDays < 0 || c.Scraper.StayNights < 1 {
		errs = append(errs, fmt.Errorf(
			"scraper window invalid: lead days %d, stay nights %d",
			c.Scraper.LeadDays, c.Scraper.StayNights,
		))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "meridian_yield"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	cfg.Provider = ProviderConfig{
		SolvexURL:     getEnv("PROVIDER_SOLVEX_URL", "https://api.solvex.bg"),
		TCTURL:        getEnv("PROVIDER_TCT_URL", "https://api.tct.travel"),
		OpenGreeceURL: getEnv("PROVIDER_OPENGREECE_URL", "https://api.opengreece.gr"),
		FetchTimeout:  getDuration("PROVIDER_FETCH_TIMEOUT", 8*time.Second),
	}

	// ── Scraper ───────────────────────────────────────────────────────────────
	leadDays, err := getInt("SCRAPER_LEAD_DAYS", 14)
	if err != nil {
		return nil, fmt.Errorf("SCRAPER_LEAD_DAYS: %w", err)
	}
	stayNights, err := getInt("SCRAPER_STAY_NIGHTS", 7)
	if err != nil {
		return nil, fmt.Errorf("SCRAPER_STAY_NIGHTS: %w", err)
	}

	var destinations []string
	if raw := os.Getenv("SCRAPER_DESTINATIONS"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				destinations = append(destinations, d)
			}
		}
	}

	cfg.Scraper = ScraperConfig{
		Headless:     getBool("SCRAPER_HEADLESS", true),
		NavTimeout:   getDuration("SCRAPER_NAV_TIMEOUT", 90*time.Second),
		MinDelay:     getDuration("SCRAPER_MIN_DELAY", 1*time.Second),
		MaxDelay:     getDuration("SCRAPER_MAX_DELAY", 3*time.Second),
		Destinations: destinations,
		LeadDays:     leadDays,
		StayNights:   stayNights,
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	cfg.Scheduler = SchedulerConfig{
		ExpirySweepInterval: getDuration("SCHEDULER_EXPIRY_SWEEP_INTERVAL", 10*time.Minute),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
