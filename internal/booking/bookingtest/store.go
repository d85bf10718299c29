// Package bookingtest provides in-memory implementations of the booking
// ports for tests.
package bookingtest

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// Store is a goroutine-safe in-memory ReservationStore and OrderStore.
type Store struct {
    mu           sync.Mutex
    reservations map[uint64]model.Reservation
    orders       map[uint64]model.Order
    nextRes      uint64
    nextOrder    uint64

    // FailCreate, when set, is returned by CreateReservation.
    FailCreate error
}

func NewStore() *Store {
    return &Store{
        reservations: make(map[uint64]model.Reservation),
        orders:       make(map[uint64]model.Order),
    }
}

func (s *Store) CreateReservation(_ context.Context, r *model.Reservation) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.FailCreate != nil {
        return s.FailCreate
    }
    s.nextRes++
    now := time.Now().UTC()
    r.ID = s.nextRes
    r.CreatedAt, r.UpdatedAt = now, now
    s.reservations[r.ID] = *r
    return nil
}

// Put stores r as-is, for seeding.
func (s *Store) Put(r model.Reservation) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if r.ID > s.nextRes {
        s.nextRes = r.ID
    }
    s.reservations[r.ID] = r
}

func (s *Store) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.reservations[id]
    if !ok {
        return model.Reservation{}, booking.ErrNotFound
    }
    return r, nil
}

func (s *Store) TransitionReservation(_ context.Context, id uint64, from, to model.ReservationState) (model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.reservations[id]
    if !ok {
        return model.Reservation{}, booking.ErrNotFound
    }
    if r.State != from {
        return model.Reservation{}, booking.ErrInvalidState
    }
    r.State = to
    r.UpdatedAt = time.Now().UTC()
    s.reservations[id] = r
    return r, nil
}

func (s *Store) filter(keep func(model.Reservation) bool) []model.Reservation {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Reservation, 0)
    for _, r := range s.reservations {
        if keep(r) {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (s *Store) ListActiveByTable(_ context.Context, tableID uint64) ([]model.Reservation, error) {
    return s.filter(func(r model.Reservation) bool {
        return r.TableID == tableID && r.State.HoldsTable()
    }), nil
}

func (s *Store) ListByCustomer(_ context.Context, customerID uint64) ([]model.Reservation, error) {
    out := s.filter(func(r model.Reservation) bool { return r.CustomerID == customerID })
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out, nil
}

func (s *Store) ListByRestaurant(_ context.Context, restaurantID uint64) ([]model.Reservation, error) {
    out := s.filter(func(r model.Reservation) bool { return r.RestaurantID == restaurantID })
    sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
    return out, nil
}

func (s *Store) ListElapsed(_ context.Context, before time.Time) ([]model.Reservation, error) {
    return s.filter(func(r model.Reservation) bool {
        return r.State.HoldsTable() && !r.End.After(before)
    }), nil
}

func (s *Store) CreateOrder(_ context.Context, o *model.Order) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextOrder++
    now := time.Now().UTC()
    o.ID = s.nextOrder
    o.CreatedAt, o.UpdatedAt = now, now
    s.orders[o.ID] = cloneOrder(*o)
    return nil
}

func (s *Store) GetOrder(_ context.Context, id uint64) (model.Order, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    o, ok := s.orders[id]
    if !ok {
        return model.Order{}, booking.ErrNotFound
    }
    return cloneOrder(o), nil
}

func (s *Store) ReplaceOrderItems(_ context.Context, id uint64, items []model.OrderItem, total decimal.Decimal) (model.Order, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    o, ok := s.orders[id]
    if !ok {
        return model.Order{}, booking.ErrNotFound
    }
    if o.State != model.OrderOpen {
        return model.Order{}, booking.ErrInvalidState
    }
    o.Items = append([]model.OrderItem(nil), items...)
    o.Total = total
    o.UpdatedAt = time.Now().UTC()
    s.orders[id] = o
    return cloneOrder(o), nil
}

func (s *Store) TransitionOrder(_ context.Context, id uint64, from, to model.OrderState) (model.Order, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    o, ok := s.orders[id]
    if !ok {
        return model.Order{}, booking.ErrNotFound
    }
    if o.State != from {
        return model.Order{}, booking.ErrInvalidState
    }
    o.State = to
    o.UpdatedAt = time.Now().UTC()
    s.orders[id] = o
    return cloneOrder(o), nil
}

func (s *Store) ListOrdersByReservation(_ context.Context, reservationID uint64) ([]model.Order, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Order, 0)
    for _, o := range s.orders {
        if o.ReservationID == reservationID {
            out = append(out, cloneOrder(o))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *Store) listOrders(keep func(model.Order) bool) []model.Order {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Order, 0)
    for _, o := range s.orders {
        if keep(o) {
            out = append(out, cloneOrder(o))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out
}

func (s *Store) ListOrdersByCustomer(_ context.Context, customerID uint64) ([]model.Order, error) {
    return s.listOrders(func(o model.Order) bool { return o.CustomerID == customerID }), nil
}

// ListOrdersByRestaurant reads the reservation map under the same lock as
// the orders.
func (s *Store) ListOrdersByRestaurant(_ context.Context, restaurantID uint64) ([]model.Order, error) {
    return s.listOrders(func(o model.Order) bool {
        return s.reservations[o.ReservationID].RestaurantID == restaurantID
    }), nil
}

func cloneOrder(o model.Order) model.Order {
    o.Items = append([]model.OrderItem(nil), o.Items...)
    return o
}
