package jobs

import (
    "context"
    "errors"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/booking/bookingtest"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

type countingSweeper struct {
    calls atomic.Int32
    err   error
}

func (s *countingSweeper) SweepElapsed(ctx context.Context) (booking.SweepResult, error) {
    s.calls.Add(1)
    if _, ok := ctx.Deadline(); !ok {
        return booking.SweepResult{}, errors.New("sweep without deadline")
    }
    return booking.SweepResult{Completed: 1}, s.err
}

func TestSweepJobRunsManagerSweep(t *testing.T) {
    store := bookingtest.NewStore()
    catalog := bookingtest.NewCatalog().AddTable(1, 10, 4)
    base := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)
    store.Put(model.Reservation{ID: 1, RestaurantID: 1, TableID: 10, CustomerID: 100, Start: base, End: base.Add(time.Hour), PartySize: 2, State: model.ReservationConfirmed})
    store.Put(model.Reservation{ID: 2, RestaurantID: 1, TableID: 10, CustomerID: 100, Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour), PartySize: 2, State: model.ReservationConfirmed})
    m := booking.NewManager(store, catalog, booking.Options{Now: func() time.Time { return base.Add(90 * time.Minute) }})

    NewSweepJob(m, nil).Run()

    done, err := store.GetReservation(context.Background(), 1)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCompleted, done.State)
    later, err := store.GetReservation(context.Background(), 2)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationConfirmed, later.State)
}

func TestSweepJobToleratesErrors(t *testing.T) {
    s := &countingSweeper{err: errors.New("db down")}
    NewSweepJob(s, nil).Run()
    assert.Equal(t, int32(1), s.calls.Load())
}

func TestNewScheduler(t *testing.T) {
    s := &countingSweeper{}
    c, err := NewScheduler("@every 1h", NewSweepJob(s, nil))
    require.NoError(t, err)
    assert.Len(t, c.Entries(), 1)

    _, err = NewScheduler("every so often", NewSweepJob(s, nil))
    assert.Error(t, err)
}
