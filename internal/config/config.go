// Package config reads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/msomdec/spacebook/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Path string
	// StorageName is the key the session snapshot is persisted under.
	StorageName string
}

type AuthConfig struct {
	JWTSecret                string
	BcryptCost               int
	RequireEmailConfirmation bool
	SessionTTL               time.Duration
	OTPTTL                   time.Duration
	OTPResendPerMinute       float64
}

// Load reads .env if present, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path:        getEnv("DATABASE_PATH", "spacebook.db"),
			StorageName: getEnv("STORAGE_NAME", domain.StorageName),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
	}

	var err error
	if cfg.Auth.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.RequireEmailConfirmation, err = getEnvAsBool("REQUIRE_EMAIL_CONFIRMATION", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.SessionTTL, err = getEnvAsDuration("SESSION_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.OTPTTL, err = getEnvAsDuration("OTP_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.OTPResendPerMinute, err = getEnvAsFloat("OTP_RESEND_PER_MINUTE", 1); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}
	if c.Database.StorageName == "" {
		errs = append(errs, errors.New("STORAGE_NAME must not be empty"))
	}
	switch {
	case c.Auth.JWTSecret == "":
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	case len(c.Auth.JWTSecret) < 32:
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Auth.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.Auth.OTPResendPerMinute <= 0 {
		errs = append(errs, errors.New("OTP_RESEND_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
