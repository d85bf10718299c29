package booking

import "time"

// Window is a half-open time interval [Start, End) during which a table is
// held.  Construct it with NewWindow; the zero value is not a valid window.
type Window struct {
    Start time.Time
    End   time.Time
}

// NewWindow validates and normalises a window to whole seconds in UTC, the
// precision the reservations table stores.  Windows that are zero-length or
// inverted after truncation are rejected with ErrValidation.
func NewWindow(start, end time.Time) (Window, error) {
    if start.IsZero() || end.IsZero() {
        return Window{}, validationf("window start and end are required")
    }
    start, end = start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second)
    if !end.After(start) {
        return Window{}, validationf("window end must be after start")
    }
    return Window{Start: start, End: end}, nil
}

// Overlaps reports whether w and o intersect.  Windows that only touch at a
// boundary do not overlap.
func (w Window) Overlaps(o Window) bool {
    return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }
