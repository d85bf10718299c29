package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Helpers shared by the optional loaders.  Unset, empty or unparsable
// values fall back to the default.

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}

// envList splits a comma separated value, trimming and upper-casing each
// element.
func envList(k, d string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(envStr(k, d), ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
