package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/joho/godotenv"
)

// AppConfig holds all environment variables.
type AppConfig struct {
	Port             string
	GinMode          string
	DBPath           string
	CatalogFile      string // empty: built-in catalog
	SeedParticipants bool   // seed new sessions with the catalog's roster
	TickInterval     time.Duration
	RevealDuration   time.Duration
	SessionTTL       time.Duration
	CleanupInterval  time.Duration
	LogVerbose       bool
	LogFile          string
	CORSOrigins      []string
}

// Load reads environment variables (and .env if present)
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:        getenv("PORT", "8080"),
		GinMode:     getenv("GIN_MODE", "release"),
		DBPath:      getenv("DB_PATH", "data/luckydraw.db"),
		CatalogFile: os.Getenv("CATALOG_FILE"),
		LogFile:     os.Getenv("LOG_FILE"),
		CORSOrigins: listEnv("CORS_ORIGINS"),
	}

	var err error
	if cfg.SeedParticipants, err = boolEnv("SEED_PARTICIPANTS", false); err != nil {
		return nil, err
	}
	if cfg.LogVerbose, err = boolEnv("LOG_VERBOSE", false); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = durationEnv("REVEAL_TICK", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RevealDuration, err = durationEnv("REVEAL_DURATION", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = durationEnv("CLEANUP_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *AppConfig) Validate() error {
	for _, origin := range c.CORSOrigins {
		if err := validation.Validate(origin, is.URL); err != nil {
			return fmt.Errorf("CORS_ORIGINS %q: %w", origin, err)
		}
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.GinMode, validation.In("debug", "release", "test")),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.TickInterval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.RevealDuration, validation.Required, validation.Min(c.TickInterval)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.CleanupInterval, validation.Required, validation.Min(time.Second)),
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// listEnv splits a comma separated variable, dropping blanks.
func listEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
