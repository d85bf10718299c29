// Package booking implements the reservation conflict-resolution engine:
// the availability index, the per-table conflict arbiter, the reservation
// lifecycle manager and the order binder.
//
// Every error returned by this package wraps exactly one of the sentinel
// values below so that callers can classify failures with errors.Is.
package booking

import (
    "errors"
    "fmt"
)

// ErrValidation marks malformed input (inverted window, bad quantity, ...).
// The caller must correct the request; it is never retried automatically.
var ErrValidation = errors.New("validation failed")

// ErrCapacity is returned when the party does not fit the table.  It wraps
// ErrValidation.
var ErrCapacity = fmt.Errorf("%w: party size exceeds table capacity", ErrValidation)

// ErrConflict means the requested window is already taken on the table.
var ErrConflict = errors.New("time slot unavailable")

// ErrBusy means the table lock could not be acquired in time.  Safe to retry
// with backoff.
var ErrBusy = errors.New("table busy, try again")

// ErrForbidden is returned when the caller may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned for missing restaurants, tables, menu items,
// reservations and orders.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when an operation is illegal for the entity's
// current lifecycle state.
var ErrInvalidState = errors.New("invalid state")

func validationf(format string, args ...any) error {
    return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...any) error {
    return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
