// Package queue carries reservation and order events over RabbitMQ: the
// wire payload, the publisher used by the booking engine and the audit
// consumer that appends every event to a log file.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
)

// ReservationEvent is the JSON payload published for every committed
// reservation or order change.  It carries enough context for downstream
// consumers to log, notify or aggregate without querying the database.
type ReservationEvent struct {
    EventID       string `json:"event_id"`
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    OrderID       uint64 `json:"order_id,omitempty"`
    RestaurantID  uint64 `json:"restaurant_id"`
    TableID       uint64 `json:"table_id"`
    CustomerID    uint64 `json:"customer_id"`
    ActorID       uint64 `json:"actor_id,omitempty"`
    WindowStart   string `json:"window_start"`
    WindowEnd     string `json:"window_end"`
    State         string `json:"state"`
    OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent converts a booking event into its wire form with a
// fresh event id.  Timestamps are RFC 3339 in UTC.
func NewReservationEvent(ev booking.Event) ReservationEvent {
    return ReservationEvent{
        EventID:       uuid.NewString(),
        Type:          ev.Type,
        ReservationID: ev.ReservationID,
        OrderID:       ev.OrderID,
        RestaurantID:  ev.RestaurantID,
        TableID:       ev.TableID,
        CustomerID:    ev.CustomerID,
        ActorID:       ev.ActorID,
        WindowStart:   ev.Window.Start.UTC().Format(time.RFC3339),
        WindowEnd:     ev.Window.End.UTC().Format(time.RFC3339),
        State:         ev.State,
        OccurredAt:    ev.OccurredAt.UTC().Format(time.RFC3339),
    }
}
