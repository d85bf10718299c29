package booking

import (
    "context"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationStore persists reservations.  Implementations return
// ErrNotFound for unknown ids.
type ReservationStore interface {
    // CreateReservation inserts r and fills in its ID and timestamps.
    CreateReservation(ctx context.Context, r *model.Reservation) error
    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    // TransitionReservation moves the reservation from one state to another
    // and returns the updated record.  It returns ErrInvalidState when the
    // stored state is no longer from.
    TransitionReservation(ctx context.Context, id uint64, from, to model.ReservationState) (model.Reservation, error)
    // ListActiveByTable returns PENDING and CONFIRMED reservations of a table.
    ListActiveByTable(ctx context.Context, tableID uint64) ([]model.Reservation, error)
    ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error)
    // ListByRestaurant returns every reservation of a restaurant ordered by
    // window start.
    ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Reservation, error)
    // ListElapsed returns PENDING and CONFIRMED reservations whose window
    // ended at or before the given time.
    ListElapsed(ctx context.Context, before time.Time) ([]model.Reservation, error)
}

// OrderStore persists orders and their items.
type OrderStore interface {
    // CreateOrder inserts o with its items and fills in ID and timestamps.
    CreateOrder(ctx context.Context, o *model.Order) error
    GetOrder(ctx context.Context, id uint64) (model.Order, error)
    // ReplaceOrderItems swaps the items of an OPEN order.  It returns
    // ErrInvalidState when the order is no longer OPEN.
    ReplaceOrderItems(ctx context.Context, id uint64, items []model.OrderItem, total decimal.Decimal) (model.Order, error)
    TransitionOrder(ctx context.Context, id uint64, from, to model.OrderState) (model.Order, error)
    ListOrdersByReservation(ctx context.Context, reservationID uint64) ([]model.Order, error)
    // ListOrdersByCustomer returns a customer's orders, newest first.
    ListOrdersByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error)
    // ListOrdersByRestaurant returns the orders of every reservation made at
    // the restaurant, newest first.
    ListOrdersByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Order, error)
}

// TableCatalog is the read-only restaurant/table lookup owned by the
// catalog collaborator.
type TableCatalog interface {
    GetTable(ctx context.Context, restaurantID, tableID uint64) (model.Table, error)
}

// MenuCatalog is the read-only menu lookup owned by the catalog
// collaborator.
type MenuCatalog interface {
    GetMenuItem(ctx context.Context, id uint64) (model.MenuItem, error)
}

// EventPublisher receives domain events after a change has been committed.
// Failures are logged and never undo the change.
type EventPublisher interface {
    Publish(ctx context.Context, ev Event) error
}

// Event types.
const (
    EventReservationBooked    = "reservation.booked"
    EventReservationConfirmed = "reservation.confirmed"
    EventReservationCancelled = "reservation.cancelled"
    EventReservationCompleted = "reservation.completed"
    EventOrderAttached        = "order.attached"
    EventOrderModified        = "order.modified"
    EventOrderFinalized       = "order.finalized"
)

// Event describes a committed reservation or order change.
type Event struct {
    Type          string
    ReservationID uint64
    OrderID       uint64
    RestaurantID  uint64
    TableID       uint64
    CustomerID    uint64
    ActorID       uint64
    Window        Window
    State         string
    OccurredAt    time.Time
}
