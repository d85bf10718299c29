package config

import "time"

// CacheConfig defines settings for the response cache middleware that sits
// in front of the public catalog endpoints (tables and menu).  Schedules
// and reservations are never cached because they change with every
// booking.  When Enabled is false or no Redis client is configured,
// caching is disabled.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Defaults are used when variables
// are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envList("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "rr:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    return cfg
}
