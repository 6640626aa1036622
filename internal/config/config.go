// Package config loads storefront server configuration.
// Sources (in priority order): env vars > .env file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevSecret signs tokens when INSECURE_DEV_MODE is on and JWT_SECRET is unset.
const DevSecret = "insecure-development-secret-do-not-use"

var ErrSecretMissing = errors.New("JWT_SECRET is required (set INSECURE_DEV_MODE=true to use a development secret)")

// Config holds all server configuration.
type Config struct {
	Port     string
	BasePath string
	LogLevel string

	// Auth
	JWTSecret       string
	InsecureDevMode bool
	// UsingDevSecret reports that DevSecret was substituted.
	UsingDevSecret  bool
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PasswordHasher  string // bcrypt or argon2
	BcryptCost      int

	// Storage
	DatabaseDriver string // mongo or postgres
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string
	StoreTimeout   time.Duration

	// Refresh token allow-list
	RefreshStore  string // memory or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Default returns configuration with sensible defaults.
func Default() Config {
	return Config{
		Port:            "4000",
		BasePath:        "/api",
		LogLevel:        "info",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		PasswordHasher:  "bcrypt",
		BcryptCost:      8,
		DatabaseDriver:  "mongo",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "storefront",
		StoreTimeout:    10 * time.Second,
		RefreshStore:    "memory",
		RedisAddr:       "localhost:6379",
		RedisPrefix:     "storefront:refresh:",
	}
}

// Load reads envFile if it exists, then overlays environment variables on the
// defaults. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	cfg := Default()

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", envFile, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("BASE_PATH"); v != "" {
		cfg.BasePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("INSECURE_DEV_MODE"); v != "" {
		cfg.InsecureDevMode = v == "true" || v == "1"
	}
	if v := os.Getenv("PASSWORD_HASHER"); v != "" {
		cfg.PasswordHasher = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REFRESH_STORE"); v != "" {
		cfg.RefreshStore = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		cfg.RedisPrefix = v
	}

	var errs []error
	envDuration("ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL, &errs)
	envDuration("REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL, &errs)
	envDuration("STORE_TIMEOUT", &cfg.StoreTimeout, &errs)
	envInt("BCRYPT_COST", &cfg.BcryptCost, &errs)
	envInt("REDIS_DB", &cfg.RedisDB, &errs)
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	if cfg.JWTSecret == "" {
		if !cfg.InsecureDevMode {
			return cfg, ErrSecretMissing
		}
		cfg.JWTSecret = DevSecret
		cfg.UsingDevSecret = true
	}

	return cfg, cfg.Validate()
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "mongo":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER %q: want mongo or postgres", c.DatabaseDriver)
	}

	switch c.RefreshStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("REFRESH_STORE %q: want memory or redis", c.RefreshStore)
	}

	switch c.PasswordHasher {
	case "bcrypt", "argon2":
	default:
		return fmt.Errorf("PASSWORD_HASHER %q: want bcrypt or argon2", c.PasswordHasher)
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

func envDuration(key string, dst *time.Duration, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s %q: want a positive duration such as 5m", key, v))
		return
	}
	*dst = d
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s %q: want an integer", key, v))
		return
	}
	*dst = n
}
