// Package config loads process configuration from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	constants "github.com/nsut-attendance/backend/internal/constants"
)

type Config struct {
	Port           string
	DatabaseURL    string
	MigrationsDir  string // empty means use the embedded migrations
	AutoMigrate    bool
	JWTSecret      string
	TokenTTL       time.Duration
	LogLevel       string
	CORSOrigins    []string
	LoginRateLimit int // login attempts per IP per minute
	DBMaxConns     int32
	RequestTimeout time.Duration
}

// LoadEnv loads .env if present. A missing file is not an error.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || value == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// Load reads the configuration. DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          GetEnv(constants.PORT, "8000"),
		DatabaseURL:   GetEnv(constants.DATABASE_URL),
		MigrationsDir: GetEnv(constants.MIGRATIONS_DIR),
		JWTSecret:     GetEnv(constants.JWT_SECRET),
		LogLevel:      GetEnv(constants.LOG_LEVEL, "info"),
		CORSOrigins:   splitCSV(GetEnv(constants.CORS_ALLOWED_ORIGINS, "*")),
	}

	var errs []error
	var err error

	if cfg.AutoMigrate, err = parseBool(constants.AUTO_MIGRATE, false); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenTTL, err = parseDuration(constants.TOKEN_TTL, 12*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequestTimeout, err = parseDuration(constants.REQUEST_TIMEOUT, 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRateLimit, err = parseInt(constants.LOGIN_RATE_LIMIT, 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.DBMaxConns, err = parseInt32(constants.DB_MAX_CONNS, 10); err != nil {
		errs = append(errs, err)
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is not set", constants.DATABASE_URL))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is not set", constants.JWT_SECRET))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if n <= 0 {
		return def, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return n, nil
}

func parseInt32(key string, def int32) (int32, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if n <= 0 {
		return def, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return int32(n), nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
