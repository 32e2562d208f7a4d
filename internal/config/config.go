package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env           string
	Port          int
	DBURL         string
	DBMaxConns    int
	DBAutoMigrate bool

	JWTSecret                string
	AccessTokenExpireMinutes int
	RefreshTokenExpireDays   int

	ClerkUsername   string
	ClerkPassword   string
	ManagerUsername string
	ManagerPassword string

	CORSOrigins    []string
	LoginRateLimit int
	APIRateLimit   int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	AccountCacheTTL time.Duration

	OTelEndpoint    string
	OTelServiceName string

	JanitorInterval  time.Duration
	WorkerHealthPort int
}

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:9000",
	"http://127.0.0.1:9000",
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set outside dev and test")
	ErrInvalidTokenTTL  = errors.New("ACCESS_TOKEN_EXPIRE_MINUTES and REFRESH_TOKEN_EXPIRE_DAYS must be positive")
)

// Load reads an optional env file first, then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "file", envFile, "err", err)
	}

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:           env,
		Port:          getEnvInt("PORT", 9000),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 5),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		JWTSecret:                getEnv("JWT_SECRET", devSecret(env)),
		AccessTokenExpireMinutes: getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		RefreshTokenExpireDays:   getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7),

		ClerkUsername:   getEnv("CLERK_USERNAME", ""),
		ClerkPassword:   getEnv("CLERK_PASSWORD", ""),
		ManagerUsername: getEnv("MANAGER_USERNAME", ""),
		ManagerPassword: getEnv("MANAGER_PASSWORD", ""),

		CORSOrigins:    getEnvList("CORS_ORIGINS", defaultCORSOrigins),
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
		APIRateLimit:   getEnvInt("API_RATE_LIMIT", 300),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		AccountCacheTTL: time.Duration(getEnvInt("ACCOUNT_CACHE_TTL_SECONDS", 30)) * time.Second,

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "bankdesk-api"),

		JanitorInterval:  time.Duration(getEnvInt("JANITOR_INTERVAL_SECONDS", 300)) * time.Second,
		WorkerHealthPort: getEnvInt("WORKER_HEALTH_PORT", 9091),
	}
}

func (c Config) Validate() error {
	if c.JWTSecret == "" && c.Env != "dev" && c.Env != "test" {
		return ErrMissingJWTSecret
	}
	if c.AccessTokenExpireMinutes <= 0 || c.RefreshTokenExpireDays <= 0 {
		return ErrInvalidTokenTTL
	}
	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "bankdesk")
	pass := getEnv("DB_PASSWORD", "bankdesk")
	name := getEnv("DB_NAME", "bankdesk")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// dev and test get a fixed secret so the API boots without setup.
func devSecret(env string) string {
	if env == "dev" || env == "test" {
		return "dev-only-secret-change-me"
	}
	return ""
}

// WithTimeout bounds a downstream call. A nil parent falls back to Background.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
