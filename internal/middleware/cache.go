package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

// captureWriter tees the response body into buf, up to limit bytes, while
// writing it to the client.
type captureWriter struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int
    truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.truncated {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.truncated = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKey hashes the parts of the request selected by the key strategy.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // "route_query"
        parts = []string{"route", r.URL.Path, "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodeEntry packs [4 bytes status][4 bytes header length][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
    hdr, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8, 8+len(hdr)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    out = append(out, hdr...)
    return append(out, body...), nil
}

func decodeEntry(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful responses of the wrapped routes in Redis
// for cfg.TTL, headers included.  Responses larger than MaxBodyBytes are
// served but not stored.  Without Redis it passes requests through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *logger.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodeEntry(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
                }
            } else if err != redis.Nil {
                log.Warn(ctx, "cache", "cache read failed", slog.String("error", err.Error()))
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodeEntry(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            // The request context may already be cancelled once the client has its answer.
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
                log.Warn(ctx, "cache", "cache write failed", slog.String("error", err.Error()))
            }
            return nil
        }
    }
}
