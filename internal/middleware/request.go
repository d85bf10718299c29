package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

// RequestContext copies the request id chosen by echo's RequestID
// middleware into the request context, where the logger and the booking
// engine pick it up, and logs one line per request.
func RequestContext(log *logger.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            rid := c.Response().Header().Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = c.Request().Header.Get(echo.HeaderXRequestID)
            }
            req := c.Request()
            ctx := logger.WithRequestID(req.Context(), rid)
            c.SetRequest(req.WithContext(ctx))

            start := time.Now()
            err := next(c)
            if err != nil {
                // Let echo write the error response so the logged status is final.
                c.Error(err)
            }
            log.Info(ctx, "http_request", req.Method+" "+c.Path(),
                slog.Int("status", c.Response().Status),
                slog.Int64("latency_ms", time.Since(start).Milliseconds()),
                slog.String("remote_ip", c.RealIP()))
            return nil
        }
    }
}
