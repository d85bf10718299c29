package model

// ReservationState is the lifecycle state of a reservation.  Values are
// stored verbatim in reservations.status.
type ReservationState string

const (
    ReservationPending   ReservationState = "PENDING"
    ReservationConfirmed ReservationState = "CONFIRMED"
    ReservationCancelled ReservationState = "CANCELLED"
    ReservationCompleted ReservationState = "COMPLETED"
)

// OrderState is the lifecycle state of an order.  Values are stored verbatim
// in orders.status.
type OrderState string

const (
    OrderOpen      OrderState = "OPEN"
    OrderFinalized OrderState = "FINALIZED"
)

// reservationTransitions is the only place that defines which reservation
// state changes are legal.  States without an entry are terminal.
var reservationTransitions = map[ReservationState][]ReservationState{
    ReservationPending:   {ReservationConfirmed, ReservationCancelled},
    ReservationConfirmed: {ReservationCompleted, ReservationCancelled},
}

var orderTransitions = map[OrderState][]OrderState{
    OrderOpen: {OrderFinalized},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ReservationState) CanTransitionTo(next ReservationState) bool {
    for _, t := range reservationTransitions[s] {
        if t == next {
            return true
        }
    }
    return false
}

// Terminal reports whether no further transitions are legal out of s.
func (s ReservationState) Terminal() bool {
    return s.Valid() && len(reservationTransitions[s]) == 0
}

// HoldsTable reports whether a reservation in state s occupies its table
// window.  Only these reservations take part in overlap checks.
func (s ReservationState) HoldsTable() bool {
    return s == ReservationPending || s == ReservationConfirmed
}

// Valid reports whether s is one of the known states.
func (s ReservationState) Valid() bool {
    switch s {
    case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted:
        return true
    }
    return false
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderState) CanTransitionTo(next OrderState) bool {
    for _, t := range orderTransitions[s] {
        if t == next {
            return true
        }
    }
    return false
}

// Mutable reports whether an order in state s may still change its items.
func (s OrderState) Mutable() bool { return s == OrderOpen }
