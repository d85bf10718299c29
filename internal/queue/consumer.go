package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

const auditFile = "reservations.log"

// StartAuditConsumer connects to RabbitMQ, declares the events queue
// (durable) and appends every message to <LogDir>/reservations.log in a
// single-line, human-friendly format.  It reconnects with exponential
// backoff and returns only when ctx is cancelled.  Messages that cannot be
// decoded or written are rejected without requeue so the loop keeps going.
func StartAuditConsumer(ctx context.Context, cfg config.QueueConfig, log *logger.Logger) error {
    backoff := time.Second
    for {
        conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
        if err != nil {
            log.Warn(ctx, "audit_consumer", "failed to dial broker",
                slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, cfg, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn(ctx, "audit_consumer", "consume loop ended, reconnecting", slog.String("error", err.Error()))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg config.QueueConfig, log *logger.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn(ctx, "audit_consumer", "set QoS failed", slog.String("error", err.Error()))
    }
    if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Info(ctx, "audit_consumer", "consuming", slog.String("queue", cfg.Queue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(cfg.LogDir, d.Body); err != nil {
                log.Warn(ctx, "audit_consumer", "handle message failed", slog.String("error", err.Error()))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir string, body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, auditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev ReservationEvent) string {
    line := fmt.Sprintf("[%s] %s | reservation_id=%d", ev.OccurredAt, ev.Type, ev.ReservationID)
    if ev.OrderID != 0 {
        line += fmt.Sprintf(" | order_id=%d", ev.OrderID)
    }
    return line + fmt.Sprintf(" | restaurant_id=%d | table_id=%d | customer_id=%d | window=%s/%s | state=%s | event_id=%s\n",
        ev.RestaurantID, ev.TableID, ev.CustomerID, ev.WindowStart, ev.WindowEnd, ev.State, ev.EventID)
}
