package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Session      SessionConfig
	Verification VerificationConfig
	Auth         AuthConfig
	Cart         CartConfig
	Email        EmailConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AllowOrigins string
	LogLevel     string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	RunMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	TTL               time.Duration
	CleanupInterval   time.Duration
	CookieName        string
	AssertionFallback bool
	RememberSecret    string
	RememberTTL       time.Duration
	RememberCookie    string
	Issuer            string
}

type VerificationConfig struct {
	CodeTTL  time.Duration
	TimeZone string
	Location *time.Location
}

type AuthConfig struct {
	LegacyHashKey     string
	LegacyAutoConfirm bool
	// Accounts created before this instant predate email verification.
	VerificationCutoff time.Time
}

type CartConfig struct {
	TTL         time.Duration
	LockStripes int
	CookieName  string
}

type EmailConfig struct {
	Enabled   bool
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	AWSRegion string
}

func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "shop"),
			Password:      getEnv("DB_PASSWORD", "shop"),
			DBName:        getEnv("DB_NAME", "shopdb"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Session: SessionConfig{
			TTL:               getDurationEnv("SESSION_TTL", 2*time.Hour),
			CleanupInterval:   getDurationEnv("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
			CookieName:        getEnv("SESSION_COOKIE_NAME", "session_token"),
			AssertionFallback: getBoolEnv("SESSION_ASSERTION_FALLBACK", true),
			RememberSecret:    getEnv("SESSION_REMEMBER_SECRET", ""),
			RememberTTL:       getDurationEnv("SESSION_REMEMBER_TTL", 30*24*time.Hour),
			RememberCookie:    getEnv("SESSION_REMEMBER_COOKIE", "remember_me"),
			Issuer:            getEnv("SESSION_ISSUER", "storefront"),
		},
		Verification: VerificationConfig{
			CodeTTL:  getDurationEnv("VERIFICATION_CODE_TTL", 15*time.Minute),
			TimeZone: getEnv("APP_TIMEZONE", "Europe/Istanbul"),
		},
		Auth: AuthConfig{
			LegacyHashKey:     getEnv("AUTH_LEGACY_HASH_KEY", ""),
			LegacyAutoConfirm: getBoolEnv("AUTH_LEGACY_AUTO_CONFIRM", true),
		},
		Cart: CartConfig{
			TTL:         getDurationEnv("CART_TTL", 7*24*time.Hour),
			LockStripes: getIntEnv("CART_LOCK_STRIPES", 256),
			CookieName:  getEnv("CART_COOKIE_NAME", "visitor_id"),
		},
		Email: EmailConfig{
			Enabled:   getBoolEnv("EMAIL_ENABLED", false),
			Provider:  strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			APIKey:    getEnv("EMAIL_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM", ""),
			FromName:  getEnv("EMAIL_FROM_NAME", "Storefront"),
			AWSRegion: getEnv("AWS_REGION", "eu-central-1"),
		},
	}

	loc, err := time.LoadLocation(cfg.Verification.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Verification.TimeZone, err)
	}
	cfg.Verification.Location = loc

	cutoff, err := getTimeEnv("AUTH_VERIFICATION_CUTOFF", loc)
	if err != nil {
		return nil, err
	}
	cfg.Auth.VerificationCutoff = cutoff

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Verification.CodeTTL <= 0 {
		return fmt.Errorf("VERIFICATION_CODE_TTL must be positive")
	}
	if c.Cart.LockStripes <= 0 {
		return fmt.Errorf("CART_LOCK_STRIPES must be positive")
	}
	if c.Session.AssertionFallback && c.Session.RememberSecret == "" && c.Server.IsProduction() {
		return fmt.Errorf("SESSION_REMEMBER_SECRET is required when SESSION_ASSERTION_FALLBACK is enabled")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getTimeEnv parses YYYY-MM-DD or RFC3339. A missing value yields the zero
// time, which disables the cutoff.
func getTimeEnv(key string, loc *time.Location) (time.Time, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return t, nil
}
