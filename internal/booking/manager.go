package booking

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/logger"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ConfirmPolicy selects the initial state of new reservations.
type ConfirmPolicy string

const (
    // PolicyAuto books straight into CONFIRMED.
    PolicyAuto ConfirmPolicy = "auto"
    // PolicyManual books into PENDING until an administrator confirms.
    PolicyManual ConfirmPolicy = "manual"
)

// ParseConfirmPolicy accepts "auto" or "manual" in any case.
func ParseConfirmPolicy(s string) (ConfirmPolicy, error) {
    switch ConfirmPolicy(strings.ToLower(strings.TrimSpace(s))) {
    case PolicyAuto:
        return PolicyAuto, nil
    case PolicyManual:
        return PolicyManual, nil
    }
    return "", fmt.Errorf("unknown confirm policy %q", s)
}

func (p ConfirmPolicy) initialState() model.ReservationState {
    if p == PolicyManual {
        return model.ReservationPending
    }
    return model.ReservationConfirmed
}

// Options tune a Manager.  The zero value is usable.
type Options struct {
    Policy      ConfirmPolicy
    LockTimeout time.Duration
    // MaxWindow caps the length of a reservation window; zero means no cap.
    MaxWindow time.Duration
    Publisher EventPublisher
    Logger    *logger.Logger
    Now       func() time.Time
}

// BookRequest is the input of Manager.Book.
type BookRequest struct {
    RestaurantID uint64
    TableID      uint64
    Window       Window
    PartySize    int
    Notes        string
}

// Manager owns the reservation lifecycle.  Every state change of a
// reservation happens under its table's lock, so the sequence of outcomes
// per table is equivalent to a serial execution in lock order.
type Manager struct {
    store     ReservationStore
    tables    TableCatalog
    index     *AvailabilityIndex
    arbiter   *Arbiter
    policy    ConfirmPolicy
    maxWindow time.Duration
    pub       EventPublisher
    log       *logger.Logger
    now       func() time.Time
}

// NewManager wires a Manager over the given store and table catalog.
func NewManager(store ReservationStore, tables TableCatalog, opts Options) *Manager {
    if store == nil || tables == nil {
        panic("nil dependency passed to NewManager")
    }
    if opts.Policy == "" {
        opts.Policy = PolicyAuto
    }
    if opts.Now == nil {
        opts.Now = time.Now
    }
    return &Manager{
        store:     store,
        tables:    tables,
        index:     NewAvailabilityIndex(),
        arbiter:   NewArbiter(opts.LockTimeout),
        policy:    opts.Policy,
        maxWindow: opts.MaxWindow,
        pub:       opts.Publisher,
        log:       opts.Logger,
        now:       opts.Now,
    }
}

// Policy returns the configured confirmation policy.
func (m *Manager) Policy() ConfirmPolicy { return m.policy }

// Index exposes the availability index for inspection.
func (m *Manager) Index() *AvailabilityIndex { return m.index }

func windowOf(r model.Reservation) Window {
    return Window{Start: r.Start.UTC().Truncate(time.Second), End: r.End.UTC().Truncate(time.Second)}
}

// ensureLoaded rebuilds the table's timeline from the store the first time
// the table is touched or after it was invalidated.  Caller holds the lock.
func (m *Manager) ensureLoaded(ctx context.Context, tableID uint64) error {
    if m.index.Loaded(tableID) {
        return nil
    }
    active, err := m.store.ListActiveByTable(ctx, tableID)
    if err != nil {
        return fmt.Errorf("load table %d timeline: %w", tableID, err)
    }
    slots := make([]Slot, 0, len(active))
    for _, r := range active {
        slots = append(slots, Slot{Window: windowOf(r), ReservationID: r.ID})
    }
    m.index.Load(tableID, slots)
    return nil
}

// Book reserves a table window for the actor.
func (m *Manager) Book(ctx context.Context, actor model.Identity, req BookRequest) (model.Reservation, error) {
    if req.RestaurantID == 0 || req.TableID == 0 {
        return model.Reservation{}, validationf("restaurant_id and table_id are required")
    }
    w, err := NewWindow(req.Window.Start, req.Window.End)
    if err != nil {
        return model.Reservation{}, err
    }
    if m.maxWindow > 0 && w.Duration() > m.maxWindow {
        return model.Reservation{}, validationf("window longer than %s", m.maxWindow)
    }
    if req.PartySize < 1 {
        return model.Reservation{}, validationf("party_size must be at least 1")
    }
    table, err := m.tables.GetTable(ctx, req.RestaurantID, req.TableID)
    if err != nil {
        return model.Reservation{}, err
    }
    if req.PartySize > table.Capacity {
        return model.Reservation{}, fmt.Errorf("%w (party of %d, table %d seats %d)", ErrCapacity, req.PartySize, table.ID, table.Capacity)
    }

    res := model.Reservation{
        RestaurantID: req.RestaurantID,
        TableID:      req.TableID,
        CustomerID:   actor.UserID,
        Start:        w.Start,
        End:          w.End,
        PartySize:    req.PartySize,
        State:        m.policy.initialState(),
        Notes:        strings.TrimSpace(req.Notes),
    }
    err = m.arbiter.WithTableLock(ctx, req.TableID, func() error {
        if err := m.ensureLoaded(ctx, req.TableID); err != nil {
            return err
        }
        if m.index.Query(req.TableID, w) {
            return fmt.Errorf("%w: table %d is booked between %s and %s", ErrConflict, req.TableID,
                w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
        }
        if err := m.store.CreateReservation(ctx, &res); err != nil {
            // The write may have landed despite the error; rebuild next time.
            m.index.Invalidate(req.TableID)
            return err
        }
        if err := m.index.Insert(req.TableID, w, res.ID); err != nil {
            m.index.Invalidate(req.TableID)
            return err
        }
        return nil
    })
    if err != nil {
        m.logOutcome(ctx, "book", req.TableID, err)
        return model.Reservation{}, err
    }
    m.log.Info(ctx, "book", "reservation created",
        slog.Uint64("reservation_id", res.ID),
        slog.Uint64("table_id", res.TableID),
        slog.String("state", string(res.State)))
    m.publish(ctx, EventReservationBooked, res, actor.UserID)
    return res, nil
}

// Cancel moves a PENDING or CONFIRMED reservation to CANCELLED and frees
// its window.  Only the owning customer or an administrator may cancel.
func (m *Manager) Cancel(ctx context.Context, actor model.Identity, reservationID uint64) (model.Reservation, error) {
    r, err := m.store.GetReservation(ctx, reservationID)
    if err != nil {
        return model.Reservation{}, err
    }
    if !r.OwnedBy(actor) {
        return model.Reservation{}, fmt.Errorf("%w: reservation %d belongs to another customer", ErrForbidden, reservationID)
    }
    out, err := m.transition(ctx, r.TableID, reservationID, model.ReservationCancelled)
    if err != nil {
        m.logOutcome(ctx, "cancel", r.TableID, err)
        return model.Reservation{}, err
    }
    m.log.Info(ctx, "cancel", "reservation cancelled", slog.Uint64("reservation_id", reservationID))
    m.publish(ctx, EventReservationCancelled, out, actor.UserID)
    return out, nil
}

// Confirm moves a PENDING reservation to CONFIRMED.  Administrators only.
// Under the auto policy reservations never sit in PENDING, so the call
// fails with ErrInvalidState.
func (m *Manager) Confirm(ctx context.Context, actor model.Identity, reservationID uint64) (model.Reservation, error) {
    if !actor.IsAdmin() {
        return model.Reservation{}, fmt.Errorf("%w: only administrators confirm reservations", ErrForbidden)
    }
    r, err := m.store.GetReservation(ctx, reservationID)
    if err != nil {
        return model.Reservation{}, err
    }
    out, err := m.transition(ctx, r.TableID, reservationID, model.ReservationConfirmed)
    if err != nil {
        return model.Reservation{}, err
    }
    m.log.Info(ctx, "confirm", "reservation confirmed", slog.Uint64("reservation_id", reservationID))
    m.publish(ctx, EventReservationConfirmed, out, actor.UserID)
    return out, nil
}

// Complete marks a CONFIRMED reservation as served and frees its window.
func (m *Manager) Complete(ctx context.Context, reservationID uint64) (model.Reservation, error) {
    r, err := m.store.GetReservation(ctx, reservationID)
    if err != nil {
        return model.Reservation{}, err
    }
    out, err := m.transition(ctx, r.TableID, reservationID, model.ReservationCompleted)
    if err != nil {
        return model.Reservation{}, err
    }
    m.publish(ctx, EventReservationCompleted, out, 0)
    return out, nil
}

// transition applies a state change under the table lock, re-reading the
// reservation first so the check uses the state current at lock time.
func (m *Manager) transition(ctx context.Context, tableID, reservationID uint64, to model.ReservationState) (model.Reservation, error) {
    var out model.Reservation
    err := m.arbiter.WithTableLock(ctx, tableID, func() error {
        if err := m.ensureLoaded(ctx, tableID); err != nil {
            return err
        }
        cur, err := m.store.GetReservation(ctx, reservationID)
        if err != nil {
            return err
        }
        if !cur.State.CanTransitionTo(to) {
            return invalidStatef("reservation %d is %s, cannot become %s", reservationID, cur.State, to)
        }
        updated, err := m.store.TransitionReservation(ctx, reservationID, cur.State, to)
        if err != nil {
            m.index.Invalidate(tableID)
            return err
        }
        if cur.State.HoldsTable() && !to.HoldsTable() {
            if !m.index.Remove(tableID, windowOf(cur), reservationID) {
                // The stored window differs from the indexed one; rebuild.
                m.index.Invalidate(tableID)
            }
        }
        out = updated
        return nil
    })
    return out, err
}

// Get returns a reservation visible to the actor.
func (m *Manager) Get(ctx context.Context, actor model.Identity, reservationID uint64) (model.Reservation, error) {
    r, err := m.store.GetReservation(ctx, reservationID)
    if err != nil {
        return model.Reservation{}, err
    }
    if !r.OwnedBy(actor) {
        return model.Reservation{}, fmt.Errorf("%w: reservation %d belongs to another customer", ErrForbidden, reservationID)
    }
    return r, nil
}

// ListMine returns the actor's reservations, newest first.
func (m *Manager) ListMine(ctx context.Context, actor model.Identity) ([]model.Reservation, error) {
    return m.store.ListByCustomer(ctx, actor.UserID)
}

// ListByRestaurant returns every reservation of a restaurant ordered by
// window start.  Administrators only.
func (m *Manager) ListByRestaurant(ctx context.Context, actor model.Identity, restaurantID uint64) ([]model.Reservation, error) {
    if !actor.IsAdmin() {
        return nil, fmt.Errorf("%w: only administrators list restaurant reservations", ErrForbidden)
    }
    return m.store.ListByRestaurant(ctx, restaurantID)
}

// Schedule returns the booked windows of a table that intersect w.
func (m *Manager) Schedule(ctx context.Context, restaurantID, tableID uint64, w Window) ([]Slot, error) {
    w, err := NewWindow(w.Start, w.End)
    if err != nil {
        return nil, err
    }
    if _, err := m.tables.GetTable(ctx, restaurantID, tableID); err != nil {
        return nil, err
    }
    if !m.index.Loaded(tableID) {
        err := m.arbiter.WithTableLock(ctx, tableID, func() error {
            return m.ensureLoaded(ctx, tableID)
        })
        if err != nil {
            return nil, err
        }
    }
    return m.index.Booked(tableID, w), nil
}

// SweepResult counts what a sweep changed.
type SweepResult struct {
    Completed int
    Expired   int
    Skipped   int
}

// SweepElapsed closes out reservations whose window has ended: CONFIRMED
// ones become COMPLETED and PENDING ones that were never confirmed become
// CANCELLED.  Reservations that changed concurrently or whose table is busy
// are skipped and picked up by the next sweep.
func (m *Manager) SweepElapsed(ctx context.Context) (SweepResult, error) {
    var res SweepResult
    elapsed, err := m.store.ListElapsed(ctx, m.now().UTC())
    if err != nil {
        return res, fmt.Errorf("list elapsed reservations: %w", err)
    }
    var firstErr error
    for _, r := range elapsed {
        to := model.ReservationCompleted
        if r.State == model.ReservationPending {
            to = model.ReservationCancelled
        }
        out, err := m.transition(ctx, r.TableID, r.ID, to)
        switch {
        case err == nil && to == model.ReservationCompleted:
            res.Completed++
            m.publish(ctx, EventReservationCompleted, out, 0)
        case err == nil:
            res.Expired++
            m.publish(ctx, EventReservationCancelled, out, 0)
        case errors.Is(err, ErrInvalidState), errors.Is(err, ErrBusy):
            res.Skipped++
        default:
            res.Skipped++
            if firstErr == nil {
                firstErr = err
            }
        }
        if ctx.Err() != nil {
            return res, ctx.Err()
        }
    }
    return res, firstErr
}

func (m *Manager) logOutcome(ctx context.Context, action string, tableID uint64, err error) {
    switch {
    case errors.Is(err, ErrConflict), errors.Is(err, ErrBusy),
        errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidState),
        errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
        m.log.Info(ctx, action, err.Error(), slog.Uint64("table_id", tableID))
    default:
        m.log.Error(ctx, action, "reservation operation failed", err, slog.Uint64("table_id", tableID))
    }
}

func (m *Manager) publish(ctx context.Context, typ string, r model.Reservation, actorID uint64) {
    m.emit(ctx, Event{
        Type:          typ,
        ReservationID: r.ID,
        RestaurantID:  r.RestaurantID,
        TableID:       r.TableID,
        CustomerID:    r.CustomerID,
        ActorID:       actorID,
        Window:        windowOf(r),
        State:         string(r.State),
        OccurredAt:    m.now().UTC(),
    })
}

func (m *Manager) emit(ctx context.Context, ev Event) {
    if m.pub == nil {
        return
    }
    if err := m.pub.Publish(ctx, ev); err != nil {
        m.log.Warn(ctx, "publish", "event not published",
            slog.String("type", ev.Type), slog.String("error", err.Error()))
    }
}
