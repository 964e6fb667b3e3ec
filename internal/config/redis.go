package config

// Redis backs distributed rate limiting and report caching. If the server
// cannot be reached at startup NewRedisClient returns nil and callers
// degrade: the rate limiter falls back to an in-process limiter and the
// cache is skipped.

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tour-booking-api/internal/logging"
)

// RedisConfig holds the REDIS_* settings.
type RedisConfig struct {
	Addr        string // REDIS_HOST:REDIS_PORT, else REDIS_ADDR
	Password    string // REDIS_PASSWORD
	DB          int    // REDIS_DB
	TLS         bool   // REDIS_TLS
	DialTimeout time.Duration
}

// LoadRedis reads the REDIS_* variables. Host and port win over
// REDIS_ADDR when both are set.
func LoadRedis() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Addr:        addr,
		Password:    envStr("REDIS_PASSWORD", ""),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		DialTimeout: 2 * time.Second,
	}
}

// Options converts c into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
	opts := &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	}
	if c.TLS {
		host, _, err := net.SplitHostPort(c.Addr)
		if err != nil {
			host = c.Addr
		}
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return opts
}

// NewRedisClient connects and pings Redis. It returns nil when the server
// does not answer.
func NewRedisClient(c RedisConfig) *redis.Client {
	client := redis.NewClient(c.Options())
	ctx, cancel := context.WithTimeout(context.Background(), c.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn().Err(err).Str("addr", c.Addr).Msg("redis ping failed")
		_ = client.Close()
		return nil
	}
	return client
}
