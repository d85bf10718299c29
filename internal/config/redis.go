package config

// Redis backs the rate limiter and the catalog response cache.  Both
// degrade to pass-through when no client is available, so a failed
// connection at startup is not fatal.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_ADDR – host:port (default localhost:6379)
//   REDIS_HOST and REDIS_PORT – override REDIS_ADDR when both are set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when true
func RedisOptions() *redis.Options {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts
}

// NewRedisClient connects with RedisOptions and pings the server.  It
// returns nil when Redis is unreachable.
func NewRedisClient() *redis.Client {
    client := redis.NewClient(RedisOptions())
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
