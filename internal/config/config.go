package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/logging"
)

// Environments recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all runtime configuration of the API server. Each field
// corresponds to an environment variable.
type Config struct {
	Env  string // APP_ENV: development or production
	Port string // APP_PORT

	DB        DatabaseConfig
	DBMigrate bool // DB_MIGRATE: apply the embedded schema at startup

	JWTSecret         string        // JWT_SECRET
	JWTExpiresIn      time.Duration // JWT_EXPIRES_IN, e.g. "90d" or "2160h"
	JWTCookieExpiresD int           // JWT_COOKIE_EXPIRES_IN, days
	BcryptCost        int           // BCRYPT_COST
	ResetTokenTTL     time.Duration // RESET_TOKEN_TTL

	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT: json or console

	Redis RedisConfig
	Queue QueueConfig
	Email EmailConfig
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// QueueConfig holds RabbitMQ settings. An empty URL disables the broker
// and mail is sent directly.
type QueueConfig struct {
	URL       string // RABBITMQ_URL
	MailQueue string // MAIL_QUEUE
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// IsDevelopment reports whether APP_ENV is development.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Load reads configuration values from environment variables. Required
// variables are enforced by must() and missing values stop the process.
func Load() Config {
	return Config{
		Env:               envStr("APP_ENV", EnvDevelopment),
		Port:              envStr("APP_PORT", "3000"),
		DB:                LoadDatabase(),
		DBMigrate:         envBool("DB_MIGRATE", false),
		JWTSecret:         must("JWT_SECRET"),
		JWTExpiresIn:      mustDays("JWT_EXPIRES_IN", "90d"),
		JWTCookieExpiresD: envInt("JWT_COOKIE_EXPIRES_IN", 90),
		BcryptCost:        envInt("BCRYPT_COST", 12),
		ResetTokenTTL:     envDur("RESET_TOKEN_TTL", 10*time.Minute),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogFormat:         envStr("LOG_FORMAT", "json"),
		Redis:             LoadRedis(),
		Queue:             LoadQueue(),
		Email:             LoadEmail(),
	}
}

// LoadDatabase reads the DB_* variables.
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"), // empty allowed
		Host: envStr("DB_HOST", "127.0.0.1"),
		Port: envStr("DB_PORT", "3306"),
		Name: must("DB_NAME"),
	}
}

// LoadQueue reads the broker settings.
func LoadQueue() QueueConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return QueueConfig{URL: url, MailQueue: envStr("MAIL_QUEUE", "mail.password_reset")}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logging.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

// mustDays parses key as a duration that also accepts a day suffix.
func mustDays(key, def string) time.Duration {
	s := envStr(key, def)
	d, err := ParseDays(s)
	if err != nil {
		logging.Fatal().Str("key", key).Str("value", s).Msg("invalid duration")
	}
	return d
}

// ParseDays parses "90d" as 90 days and anything else with
// time.ParseDuration.
func ParseDays(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
