package model

import "time"

// Reservation records a customer's hold on a restaurant table for a time
// window.  Reservations are never deleted; cancellation and completion are
// state transitions so that history is preserved.
//
// Fields:
//  ID           – primary key identifier.
//  RestaurantID – restaurant owning the table.
//  TableID      – table being held.
//  CustomerID   – user who made the reservation.
//  Start, End   – half-open window [Start, End) in UTC.
//  PartySize    – number of guests (at most the table capacity).
//  State        – lifecycle state (PENDING, CONFIRMED, CANCELLED, COMPLETED).
//  Notes        – optional free text from the customer.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Reservation struct {
    ID           uint64           `json:"id"`            // reservations.id
    RestaurantID uint64           `json:"restaurant_id"` // reservations.restaurant_id
    TableID      uint64           `json:"table_id"`      // reservations.table_id
    CustomerID   uint64           `json:"customer_id"`   // reservations.customer_id
    Start        time.Time        `json:"window_start"`  // reservations.window_start
    End          time.Time        `json:"window_end"`    // reservations.window_end
    PartySize    int              `json:"party_size"`    // reservations.party_size
    State        ReservationState `json:"state"`         // reservations.status
    Notes        string           `json:"notes,omitempty"`
    CreatedAt    time.Time        `json:"created_at"`
    UpdatedAt    time.Time        `json:"updated_at"`
}

// OwnedBy reports whether the identity may act on the reservation as its
// owner or as an administrator.
func (r Reservation) OwnedBy(id Identity) bool {
    return id.IsAdmin() || r.CustomerID == id.UserID
}
