package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationRepo persists reservations.  Rows are never deleted; the
// status column carries the lifecycle state.  All timestamps are stored in
// UTC (the DSN sets loc=UTC).
type ReservationRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
    return &ReservationRepo{db: db, now: time.Now}
}

const reservationColumns = `id, restaurant_id, table_id, customer_id, window_start, window_end,
       party_size, status, notes, created_at, updated_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
    var (
        r      model.Reservation
        status string
        notes  sql.NullString
    )
    err := row.Scan(
        &r.ID, &r.RestaurantID, &r.TableID, &r.CustomerID, &r.Start, &r.End,
        &r.PartySize, &status, &notes, &r.CreatedAt, &r.UpdatedAt,
    )
    if err != nil {
        return model.Reservation{}, err
    }
    r.State = model.ReservationState(status)
    r.Notes = notes.String
    r.Start, r.End = r.Start.UTC(), r.End.UTC()
    return r, nil
}

// CreateReservation inserts res and fills in its generated ID and
// timestamps.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (restaurant_id, table_id, customer_id, window_start, window_end, party_size, status, notes, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    now := r.now().UTC().Truncate(time.Second)
    var notes sql.NullString
    if res.Notes != "" {
        notes = sql.NullString{String: res.Notes, Valid: true}
    }
    result, err := r.db.ExecContext(ctx, q,
        res.RestaurantID, res.TableID, res.CustomerID, res.Start, res.End,
        res.PartySize, string(res.State), notes, now, now,
    )
    if err != nil {
        return translate(err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    res.CreatedAt, res.UpdatedAt = now, now
    return nil
}

// GetReservation loads a reservation by id.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        return model.Reservation{}, notFound(err, "reservation", id)
    }
    return res, nil
}

// TransitionReservation moves a reservation from one status to another with
// a conditional update, so a concurrent writer that already changed the
// status makes this call fail with booking.ErrInvalidState.
func (r *ReservationRepo) TransitionReservation(ctx context.Context, id uint64, from, to model.ReservationState) (model.Reservation, error) {
    const q = `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
    result, err := r.db.ExecContext(ctx, q, string(to), r.now().UTC().Truncate(time.Second), id, string(from))
    if err != nil {
        return model.Reservation{}, translate(err)
    }
    n, err := result.RowsAffected()
    if err != nil {
        return model.Reservation{}, err
    }
    if n == 0 {
        cur, err := r.GetReservation(ctx, id)
        if err != nil {
            return model.Reservation{}, err
        }
        return model.Reservation{}, fmt.Errorf("%w: reservation %d is %s, expected %s", booking.ErrInvalidState, id, cur.State, from)
    }
    return r.GetReservation(ctx, id)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// ListActiveByTable returns the PENDING and CONFIRMED reservations of a
// table ordered by window start.  It feeds the availability index.
func (r *ReservationRepo) ListActiveByTable(ctx context.Context, tableID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE table_id = ? AND status IN (?, ?)
          ORDER BY window_start`
    return r.list(ctx, q, tableID, string(model.ReservationPending), string(model.ReservationConfirmed))
}

// ListByCustomer returns all reservations of a customer, newest first.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE customer_id = ?
          ORDER BY id DESC`
    return r.list(ctx, q, customerID)
}

// ListByRestaurant returns every reservation of a restaurant ordered by
// window start.
func (r *ReservationRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE restaurant_id = ?
          ORDER BY window_start, id`
    return r.list(ctx, q, restaurantID)
}

// ListElapsed returns PENDING and CONFIRMED reservations whose window ended
// at or before the given instant.
func (r *ReservationRepo) ListElapsed(ctx context.Context, before time.Time) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE status IN (?, ?) AND window_end <= ?
          ORDER BY window_end`
    return r.list(ctx, q, string(model.ReservationPending), string(model.ReservationConfirmed), before.UTC())
}
