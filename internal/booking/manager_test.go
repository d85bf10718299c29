package booking_test

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/booking/bookingtest"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

const (
    restaurantID = 1
    tableID      = 10
)

var (
    evening  = time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)
    alice    = model.Identity{UserID: 100, Role: model.RoleCustomer}
    bob      = model.Identity{UserID: 200, Role: model.RoleCustomer}
    operator = model.Identity{UserID: 1, Role: model.RoleAdmin}
)

func clock(hour, minute int) time.Time {
    return evening.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func request(sh, sm, eh, em, party int) booking.BookRequest {
    return booking.BookRequest{
        RestaurantID: restaurantID,
        TableID:      tableID,
        Window:       booking.Window{Start: clock(sh, sm), End: clock(eh, em)},
        PartySize:    party,
    }
}

type fixture struct {
    store   *bookingtest.Store
    catalog *bookingtest.Catalog
    pub     *bookingtest.Publisher
    m       *booking.Manager
}

func newFixture(t *testing.T, opts booking.Options) *fixture {
    t.Helper()
    f := &fixture{
        store:   bookingtest.NewStore(),
        catalog: bookingtest.NewCatalog().AddTable(restaurantID, tableID, 4).AddTable(restaurantID, tableID+1, 2),
        pub:     &bookingtest.Publisher{},
    }
    if opts.Publisher == nil {
        opts.Publisher = f.pub
    }
    f.m = booking.NewManager(f.store, f.catalog, opts)
    return f
}

func TestBookCancelRebookScenario(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()

    first, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 4))
    require.NoError(t, err)
    assert.Equal(t, model.ReservationConfirmed, first.State)
    assert.Equal(t, alice.UserID, first.CustomerID)

    _, err = f.m.Book(ctx, bob, request(18, 30, 19, 30, 2))
    assert.ErrorIs(t, err, booking.ErrConflict)

    _, err = f.m.Book(ctx, bob, request(19, 0, 20, 0, 2))
    require.NoError(t, err, "touching windows do not overlap")

    cancelled, err := f.m.Cancel(ctx, alice, first.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCancelled, cancelled.State)

    again, err := f.m.Book(ctx, bob, request(18, 0, 19, 0, 3))
    require.NoError(t, err)
    assert.NotEqual(t, first.ID, again.ID)

    assert.Equal(t, []string{
        booking.EventReservationBooked,
        booking.EventReservationBooked,
        booking.EventReservationCancelled,
        booking.EventReservationBooked,
    }, f.pub.Types())
}

func TestBookValidation(t *testing.T) {
    f := newFixture(t, booking.Options{MaxWindow: 4 * time.Hour})
    ctx := context.Background()

    tests := []struct {
        name string
        req  booking.BookRequest
        want error
    }{
        {"inverted window", request(19, 0, 18, 0, 2), booking.ErrValidation},
        {"zero length window", request(19, 0, 19, 0, 2), booking.ErrValidation},
        {"window too long", request(12, 0, 17, 0, 2), booking.ErrValidation},
        {"empty party", request(18, 0, 19, 0, 0), booking.ErrValidation},
        {"party over capacity", request(18, 0, 19, 0, 5), booking.ErrCapacity},
        {"missing table", booking.BookRequest{RestaurantID: restaurantID, Window: request(18, 0, 19, 0, 2).Window, PartySize: 2}, booking.ErrValidation},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            _, err := f.m.Book(ctx, alice, tt.req)
            assert.ErrorIs(t, err, tt.want)
        })
    }

    assert.True(t, errors.Is(booking.ErrCapacity, booking.ErrValidation))
    assert.Equal(t, 0, f.m.Index().Len(tableID), "rejected requests never reach the index")
    assert.Empty(t, f.pub.Types())
}

func TestBookUnknownTable(t *testing.T) {
    f := newFixture(t, booking.Options{})
    req := request(18, 0, 19, 0, 2)
    req.TableID = 999
    _, err := f.m.Book(context.Background(), alice, req)
    assert.ErrorIs(t, err, booking.ErrNotFound)

    req = request(18, 0, 19, 0, 2)
    req.RestaurantID = 2
    _, err = f.m.Book(context.Background(), alice, req)
    assert.ErrorIs(t, err, booking.ErrNotFound, "table of another restaurant")
}

func TestConcurrentOverlappingBookingsExactlyOneWins(t *testing.T) {
    f := newFixture(t, booking.Options{LockTimeout: 5 * time.Second})
    ctx := context.Background()

    const n = 32
    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        wins      int
        conflicts int
    )
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            // Every window overlaps [18:30, 19:00).
            req := request(18, i%30, 19, 0+i%30, 2)
            actor := model.Identity{UserID: uint64(1000 + i), Role: model.RoleCustomer}
            _, err := f.m.Book(ctx, actor, req)
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                wins++
            case errors.Is(err, booking.ErrConflict):
                conflicts++
            default:
                t.Errorf("unexpected error: %v", err)
            }
        }(i)
    }
    wg.Wait()
    assert.Equal(t, 1, wins)
    assert.Equal(t, n-1, conflicts)

    active, err := f.store.ListActiveByTable(ctx, tableID)
    require.NoError(t, err)
    assert.Len(t, active, 1)
}

func TestCommittedWindowsNeverOverlap(t *testing.T) {
    f := newFixture(t, booking.Options{LockTimeout: 5 * time.Second})
    ctx := context.Background()

    var wg sync.WaitGroup
    for i := 0; i < 48; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            start := evening.Add(time.Duration(i*20) * time.Minute)
            req := booking.BookRequest{
                RestaurantID: restaurantID,
                TableID:      tableID,
                Window:       booking.Window{Start: start, End: start.Add(time.Hour)},
                PartySize:    2,
            }
            _, _ = f.m.Book(ctx, alice, req)
        }(i)
    }
    wg.Wait()

    active, err := f.store.ListActiveByTable(ctx, tableID)
    require.NoError(t, err)
    require.NotEmpty(t, active)
    for i := range active {
        for j := i + 1; j < len(active); j++ {
            a := booking.Window{Start: active[i].Start, End: active[i].End}
            b := booking.Window{Start: active[j].Start, End: active[j].End}
            assert.False(t, a.Overlaps(b), "reservations %d and %d overlap", active[i].ID, active[j].ID)
        }
    }
}

func TestDifferentTablesDoNotConflict(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()
    _, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)

    other := request(18, 0, 19, 0, 2)
    other.TableID = tableID + 1
    _, err = f.m.Book(ctx, bob, other)
    require.NoError(t, err)
}

func TestCancelRules(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()

    r, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)

    _, err = f.m.Cancel(ctx, bob, r.ID)
    assert.ErrorIs(t, err, booking.ErrForbidden)

    _, err = f.m.Cancel(ctx, operator, r.ID)
    require.NoError(t, err, "administrators may cancel any reservation")

    _, err = f.m.Cancel(ctx, alice, r.ID)
    assert.ErrorIs(t, err, booking.ErrInvalidState, "already terminal")

    _, err = f.m.Cancel(ctx, alice, 12345)
    assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCompletedReservationCannotBeCancelled(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()
    r, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)

    done, err := f.m.Complete(ctx, r.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCompleted, done.State)
    assert.False(t, f.m.Index().Query(tableID, booking.Window{Start: clock(18, 0), End: clock(19, 0)}))

    _, err = f.m.Cancel(ctx, alice, r.ID)
    assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestManualConfirmPolicy(t *testing.T) {
    f := newFixture(t, booking.Options{Policy: booking.PolicyManual})
    ctx := context.Background()

    r, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    assert.Equal(t, model.ReservationPending, r.State)

    _, err = f.m.Book(ctx, bob, request(18, 30, 19, 30, 2))
    assert.ErrorIs(t, err, booking.ErrConflict, "pending reservations hold the table")

    _, err = f.m.Confirm(ctx, alice, r.ID)
    assert.ErrorIs(t, err, booking.ErrForbidden)

    confirmed, err := f.m.Confirm(ctx, operator, r.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationConfirmed, confirmed.State)

    _, err = f.m.Confirm(ctx, operator, r.ID)
    assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestConfirmUnderAutoPolicyIsInvalid(t *testing.T) {
    f := newFixture(t, booking.Options{Policy: booking.PolicyAuto})
    r, err := f.m.Book(context.Background(), alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    _, err = f.m.Confirm(context.Background(), operator, r.ID)
    assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestParseConfirmPolicy(t *testing.T) {
    p, err := booking.ParseConfirmPolicy(" Manual ")
    require.NoError(t, err)
    assert.Equal(t, booking.PolicyManual, p)

    p, err = booking.ParseConfirmPolicy("AUTO")
    require.NoError(t, err)
    assert.Equal(t, booking.PolicyAuto, p)

    _, err = booking.ParseConfirmPolicy("sometimes")
    assert.Error(t, err)
}

func TestGetAndListMine(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()
    r1, err := f.m.Book(ctx, alice, request(12, 0, 13, 0, 2))
    require.NoError(t, err)
    r2, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    _, err = f.m.Book(ctx, bob, request(20, 0, 21, 0, 2))
    require.NoError(t, err)

    got, err := f.m.Get(ctx, alice, r1.ID)
    require.NoError(t, err)
    assert.Equal(t, r1.ID, got.ID)

    _, err = f.m.Get(ctx, bob, r1.ID)
    assert.ErrorIs(t, err, booking.ErrForbidden)

    _, err = f.m.Get(ctx, operator, r1.ID)
    assert.NoError(t, err)

    mine, err := f.m.ListMine(ctx, alice)
    require.NoError(t, err)
    require.Len(t, mine, 2)
    assert.Equal(t, r2.ID, mine[0].ID, "newest first")
}

func TestIndexRebuiltFromStore(t *testing.T) {
    f := newFixture(t, booking.Options{})
    f.store.Put(model.Reservation{
        ID: 77, RestaurantID: restaurantID, TableID: tableID, CustomerID: bob.UserID,
        Start: clock(18, 0), End: clock(19, 0), PartySize: 2, State: model.ReservationConfirmed,
    })
    f.store.Put(model.Reservation{
        ID: 78, RestaurantID: restaurantID, TableID: tableID, CustomerID: bob.UserID,
        Start: clock(20, 0), End: clock(21, 0), PartySize: 2, State: model.ReservationCancelled,
    })

    _, err := f.m.Book(context.Background(), alice, request(18, 30, 19, 30, 2))
    assert.ErrorIs(t, err, booking.ErrConflict)

    _, err = f.m.Book(context.Background(), alice, request(20, 0, 21, 0, 2))
    assert.NoError(t, err, "cancelled reservations are not loaded")
}

func TestStoreFailureInvalidatesTimeline(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()
    f.store.FailCreate = errors.New("connection reset")

    _, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.Error(t, err)
    assert.False(t, f.m.Index().Loaded(tableID))

    f.store.FailCreate = nil
    _, err = f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
}

func TestPublisherFailureDoesNotFailBooking(t *testing.T) {
    pub := &bookingtest.Publisher{Err: errors.New("broker down")}
    f := newFixture(t, booking.Options{Publisher: pub})
    _, err := f.m.Book(context.Background(), alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    assert.Equal(t, []string{booking.EventReservationBooked}, pub.Types())
}

func TestBookHonoursCancelledContext(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    _, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    assert.ErrorIs(t, err, context.Canceled)
    assert.Equal(t, 0, f.m.Index().Len(tableID))
}

func TestSchedule(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()
    r1, err := f.m.Book(ctx, alice, request(12, 0, 13, 0, 2))
    require.NoError(t, err)
    r2, err := f.m.Book(ctx, bob, request(18, 0, 19, 0, 2))
    require.NoError(t, err)

    slots, err := f.m.Schedule(ctx, restaurantID, tableID, booking.Window{Start: clock(0, 0), End: clock(23, 0)})
    require.NoError(t, err)
    require.Len(t, slots, 2)
    assert.Equal(t, r1.ID, slots[0].ReservationID)
    assert.Equal(t, r2.ID, slots[1].ReservationID)

    slots, err = f.m.Schedule(ctx, restaurantID, tableID, booking.Window{Start: clock(13, 0), End: clock(18, 0)})
    require.NoError(t, err)
    assert.Empty(t, slots)

    _, err = f.m.Schedule(ctx, restaurantID, tableID, booking.Window{Start: clock(13, 0), End: clock(12, 0)})
    assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestSweepElapsed(t *testing.T) {
    now := clock(22, 0)
    f := newFixture(t, booking.Options{Policy: booking.PolicyManual, Now: func() time.Time { return now }})
    ctx := context.Background()

    pending, err := f.m.Book(ctx, alice, request(12, 0, 13, 0, 2))
    require.NoError(t, err)
    served, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    _, err = f.m.Confirm(ctx, operator, served.ID)
    require.NoError(t, err)
    later, err := f.m.Book(ctx, bob, request(22, 30, 23, 30, 2))
    require.NoError(t, err)

    res, err := f.m.SweepElapsed(ctx)
    require.NoError(t, err)
    assert.Equal(t, booking.SweepResult{Completed: 1, Expired: 1}, res)

    got, err := f.store.GetReservation(ctx, pending.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCancelled, got.State)
    got, err = f.store.GetReservation(ctx, served.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCompleted, got.State)
    got, err = f.store.GetReservation(ctx, later.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationPending, got.State)

    res, err = f.m.SweepElapsed(ctx)
    require.NoError(t, err)
    assert.Equal(t, booking.SweepResult{}, res, "second sweep finds nothing")
}

// secondStore keeps windows at whole-second precision the way a DATETIME
// column does, without touching the caller's record.
type secondStore struct {
    *bookingtest.Store
}

func (s secondStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
    stored := *r
    stored.Start, stored.End = r.Start.Round(time.Second), r.End.Round(time.Second)
    if err := s.Store.CreateReservation(ctx, &stored); err != nil {
        return err
    }
    r.ID, r.CreatedAt, r.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
    return nil
}

func TestFractionalWindowIsFreedOnCancel(t *testing.T) {
    store := secondStore{bookingtest.NewStore()}
    catalog := bookingtest.NewCatalog().AddTable(restaurantID, tableID, 4)
    m := booking.NewManager(store, catalog, booking.Options{})
    ctx := context.Background()

    req := request(18, 0, 19, 0, 2)
    req.Window.Start = req.Window.Start.Add(600 * time.Millisecond)

    first, err := m.Book(ctx, alice, req)
    require.NoError(t, err)
    assert.Equal(t, clock(18, 0), first.Start)

    _, err = m.Cancel(ctx, alice, first.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, m.Index().Len(tableID))

    _, err = m.Book(ctx, bob, req)
    assert.NoError(t, err, "identical window is free after cancel")
}

func TestDriftedStoredWindowInvalidatesTimeline(t *testing.T) {
    f := newFixture(t, booking.Options{})
    ctx := context.Background()

    first, err := f.m.Book(ctx, alice, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    drifted := first
    drifted.Start = drifted.Start.Add(time.Second)
    f.store.Put(drifted)

    _, err = f.m.Cancel(ctx, alice, first.ID)
    require.NoError(t, err)
    assert.False(t, f.m.Index().Loaded(tableID), "a missed removal forces a rebuild")

    _, err = f.m.Book(ctx, bob, request(18, 0, 19, 0, 2))
    assert.NoError(t, err)
}

func TestListByRestaurant(t *testing.T) {
    f := newFixture(t, booking.Options{})
    f.catalog.AddTable(restaurantID+1, 30, 4)
    ctx := context.Background()

    late, err := f.m.Book(ctx, alice, request(20, 0, 21, 0, 2))
    require.NoError(t, err)
    early, err := f.m.Book(ctx, bob, request(18, 0, 19, 0, 2))
    require.NoError(t, err)
    elsewhere := request(18, 0, 19, 0, 2)
    elsewhere.RestaurantID, elsewhere.TableID = restaurantID+1, 30
    _, err = f.m.Book(ctx, alice, elsewhere)
    require.NoError(t, err)
    _, err = f.m.Cancel(ctx, alice, late.ID)
    require.NoError(t, err)

    _, err = f.m.ListByRestaurant(ctx, alice, restaurantID)
    assert.ErrorIs(t, err, booking.ErrForbidden)

    list, err := f.m.ListByRestaurant(ctx, operator, restaurantID)
    require.NoError(t, err)
    require.Len(t, list, 2, "cancelled reservations are listed too")
    assert.Equal(t, early.ID, list[0].ID)
    assert.Equal(t, late.ID, list[1].ID)
    assert.Equal(t, model.ReservationCancelled, list[1].State)
}
