package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

const (
    dialTimeout = 2 * time.Second
    // redialAfter throttles reconnect attempts while the broker is down so
    // that request paths do not pay a dial timeout each time.
    redialAfter = 5 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher waits before redialing
// and while another caller is already dialing.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// Publisher publishes booking events to a durable queue.  It keeps one
// connection and channel open and reconnects lazily after failures.  It is
// safe for concurrent use.  mu is never held while dialing.
type Publisher struct {
    cfg  config.QueueConfig
    log  *logger.Logger
    dial func() (*amqp.Connection, *amqp.Channel, error)

    mu         sync.Mutex
    conn       *amqp.Connection
    ch         *amqp.Channel
    dialing    bool
    closed     bool
    lastFailed time.Time
}

// NewPublisher returns a publisher for cfg.Queue.  No connection is made
// until the first event.
func NewPublisher(cfg config.QueueConfig, log *logger.Logger) *Publisher {
    p := &Publisher{cfg: cfg, log: log}
    p.dial = p.connect
    return p
}

// Publish implements booking.EventPublisher.  Messages are persistent JSON
// on the default exchange, routed to the queue by name.
func (p *Publisher) Publish(ctx context.Context, ev booking.Event) error {
    msg := NewReservationEvent(ev)
    body, err := json.Marshal(msg)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    msg.EventID,
        Type:         msg.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    ch, err := p.channel()
    if err != nil {
        return err
    }
    // amqp channels are safe for concurrent publishing.
    if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
        p.mu.Lock()
        if p.ch == ch {
            p.reset()
        }
        p.mu.Unlock()
        return fmt.Errorf("publish %s: %w", msg.Type, err)
    }
    return nil
}

// channel returns the open channel, dialing when needed.  Only one caller
// dials at a time; the others get ErrBrokerUnavailable until it finishes.
func (p *Publisher) channel() (*amqp.Channel, error) {
    p.mu.Lock()
    if p.ch != nil && !p.ch.IsClosed() {
        ch := p.ch
        p.mu.Unlock()
        return ch, nil
    }
    p.reset()
    if p.closed || p.dialing || (!p.lastFailed.IsZero() && time.Since(p.lastFailed) < redialAfter) {
        p.mu.Unlock()
        return nil, ErrBrokerUnavailable
    }
    p.dialing = true
    p.mu.Unlock()

    conn, ch, err := p.dial()

    p.mu.Lock()
    defer p.mu.Unlock()
    p.dialing = false
    if err != nil {
        p.lastFailed = time.Now()
        p.log.Warn(context.Background(), "publish", "broker connect failed", slog.String("error", err.Error()))
        return nil, err
    }
    if p.closed {
        _ = ch.Close()
        _ = conn.Close()
        return nil, ErrBrokerUnavailable
    }
    p.conn, p.ch, p.lastFailed = conn, ch, time.Time{}
    return ch, nil
}

// connect dials the broker and declares the queue.
func (p *Publisher) connect() (*amqp.Connection, *amqp.Channel, error) {
    conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
    if err != nil {
        return nil, nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, fmt.Errorf("open channel: %w", err)
    }
    if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, nil, fmt.Errorf("declare queue %s: %w", p.cfg.Queue, err)
    }
    return conn, ch, nil
}

// reset drops the current connection.  Caller holds mu.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.  Later events are dropped with
// ErrBrokerUnavailable.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closed = true
    p.reset()
}
