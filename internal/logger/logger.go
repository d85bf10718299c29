package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

type ctxKey struct{}

// WithRequestID stores the request id used to correlate log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the request id stored in ctx or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger writes JSON lines tagged with the service, the host and the action
// being performed.  A nil *Logger discards everything.
type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func NewLogger(service string) *Logger {
	return New(service, os.Stdout, slog.LevelDebug)
}

// New builds a Logger writing to w at the given minimum level.
func New(service string, w io.Writer, level slog.Level) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

func (l *Logger) log(ctx context.Context, level slog.Level, action, message string, attrs []slog.Attr) {
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	base := []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", RequestID(ctx)),
	}
	l.handler.LogAttrs(ctx, level, message, append(base, attrs...)...)
}

func (l *Logger) Debug(ctx context.Context, action, message string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, action, message, attrs)
}

func (l *Logger) Info(ctx context.Context, action, message string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, action, message, attrs)
}

func (l *Logger) Warn(ctx context.Context, action, message string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, action, message, attrs)
}

func (l *Logger) Error(ctx context.Context, action, message string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.log(ctx, slog.LevelError, action, message, attrs)
}
