package repository

import (
    "context"
    "database/sql"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

var fixedNow = time.Date(2025, 3, 20, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() {
        assert.NoError(t, mock.ExpectationsWereMet())
        db.Close()
    })
    return db, mock
}

func reservationRows() *sqlmock.Rows {
    return sqlmock.NewRows([]string{"id", "restaurant_id", "table_id", "customer_id", "window_start", "window_end",
        "party_size", "status", "notes", "created_at", "updated_at"})
}

func TestCreateReservation(t *testing.T) {
    db, mock := newMock(t)
    repo := &ReservationRepo{db: db, now: func() time.Time { return fixedNow }}
    start := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)

    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
        WithArgs(uint64(1), uint64(10), uint64(100), start, start.Add(time.Hour), 4, "CONFIRMED", nil, fixedNow, fixedNow).
        WillReturnResult(sqlmock.NewResult(7, 1))

    res := &model.Reservation{RestaurantID: 1, TableID: 10, CustomerID: 100, Start: start, End: start.Add(time.Hour), PartySize: 4, State: model.ReservationConfirmed}
    require.NoError(t, repo.CreateReservation(context.Background(), res))
    assert.Equal(t, uint64(7), res.ID)
    assert.Equal(t, fixedNow, res.CreatedAt)
}

func TestGetReservationNotFound(t *testing.T) {
    db, mock := newMock(t)
    repo := NewReservationRepo(db)
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
        WithArgs(uint64(9)).
        WillReturnError(sql.ErrNoRows)

    _, err := repo.GetReservation(context.Background(), 9)
    assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestTransitionReservation(t *testing.T) {
    start := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)
    update := regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?")
    get := regexp.QuoteMeta("FROM reservations WHERE id = ?")

    t.Run("applied", func(t *testing.T) {
        db, mock := newMock(t)
        repo := &ReservationRepo{db: db, now: func() time.Time { return fixedNow }}
        mock.ExpectExec(update).
            WithArgs("CANCELLED", fixedNow, uint64(7), "CONFIRMED").
            WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectQuery(get).WithArgs(uint64(7)).WillReturnRows(reservationRows().
            AddRow(7, 1, 10, 100, start, start.Add(time.Hour), 4, "CANCELLED", "window seat", fixedNow, fixedNow))

        got, err := repo.TransitionReservation(context.Background(), 7, model.ReservationConfirmed, model.ReservationCancelled)
        require.NoError(t, err)
        assert.Equal(t, model.ReservationCancelled, got.State)
        assert.Equal(t, "window seat", got.Notes)
    })

    t.Run("state moved on", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewReservationRepo(db)
        mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
        mock.ExpectQuery(get).WithArgs(uint64(7)).WillReturnRows(reservationRows().
            AddRow(7, 1, 10, 100, start, start.Add(time.Hour), 4, "COMPLETED", nil, fixedNow, fixedNow))

        _, err := repo.TransitionReservation(context.Background(), 7, model.ReservationConfirmed, model.ReservationCancelled)
        assert.ErrorIs(t, err, booking.ErrInvalidState)
    })

    t.Run("missing", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewReservationRepo(db)
        mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
        mock.ExpectQuery(get).WillReturnError(sql.ErrNoRows)

        _, err := repo.TransitionReservation(context.Background(), 7, model.ReservationConfirmed, model.ReservationCancelled)
        assert.ErrorIs(t, err, booking.ErrNotFound)
    })
}

func TestListActiveByTable(t *testing.T) {
    db, mock := newMock(t)
    repo := NewReservationRepo(db)
    start := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)
    mock.ExpectQuery(regexp.QuoteMeta("WHERE table_id = ? AND status IN (?, ?)")).
        WithArgs(uint64(10), "PENDING", "CONFIRMED").
        WillReturnRows(reservationRows().
            AddRow(1, 1, 10, 100, start, start.Add(time.Hour), 2, "PENDING", nil, fixedNow, fixedNow).
            AddRow(2, 1, 10, 200, start.Add(time.Hour), start.Add(2*time.Hour), 4, "CONFIRMED", nil, fixedNow, fixedNow))

    list, err := repo.ListActiveByTable(context.Background(), 10)
    require.NoError(t, err)
    require.Len(t, list, 2)
    assert.Equal(t, model.ReservationPending, list[0].State)
    assert.Equal(t, uint64(200), list[1].CustomerID)
}

func TestListByRestaurant(t *testing.T) {
    db, mock := newMock(t)
    repo := NewReservationRepo(db)
    start := time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC)
    mock.ExpectQuery(regexp.QuoteMeta("WHERE restaurant_id = ? ORDER BY window_start, id")).
        WithArgs(uint64(1)).
        WillReturnRows(reservationRows().
            AddRow(1, 1, 10, 100, start, start.Add(time.Hour), 2, "CANCELLED", nil, fixedNow, fixedNow).
            AddRow(2, 1, 11, 200, start.Add(time.Hour), start.Add(2*time.Hour), 2, "CONFIRMED", "window seat", fixedNow, fixedNow))

    list, err := repo.ListByRestaurant(context.Background(), 1)
    require.NoError(t, err)
    require.Len(t, list, 2)
    assert.Equal(t, model.ReservationCancelled, list[0].State)
    assert.Equal(t, "window seat", list[1].Notes)
}

func TestTranslate(t *testing.T) {
    assert.ErrorIs(t, translate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), booking.ErrConflict)
    assert.ErrorIs(t, translate(&mysql.MySQLError{Number: 1452, Message: "a foreign key constraint fails"}), booking.ErrNotFound)
    other := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
    assert.Same(t, other, translate(other))
    assert.NoError(t, translate(nil))
}

func TestCreateOrderIsTransactional(t *testing.T) {
    items := []model.OrderItem{
        {MenuItemID: 501, Quantity: 2, UnitPrice: decimal.RequireFromString("6.50")},
        {MenuItemID: 502, Quantity: 1, UnitPrice: decimal.RequireFromString("24.00")},
    }

    t.Run("commit", func(t *testing.T) {
        db, mock := newMock(t)
        repo := &OrderRepo{db: db, now: func() time.Time { return fixedNow }}
        mock.ExpectBegin()
        mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
            WithArgs(uint64(7), uint64(100), "OPEN", sqlmock.AnyArg(), fixedNow, fixedNow).
            WillReturnResult(sqlmock.NewResult(3, 1))
        mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price) VALUES (?, ?, ?, ?),(?, ?, ?, ?)")).
            WithArgs(uint64(3), uint64(501), 2, sqlmock.AnyArg(), uint64(3), uint64(502), 1, sqlmock.AnyArg()).
            WillReturnResult(sqlmock.NewResult(0, 2))
        mock.ExpectCommit()

        o := &model.Order{ReservationID: 7, CustomerID: 100, State: model.OrderOpen, Items: items, Total: model.SumItems(items)}
        require.NoError(t, repo.CreateOrder(context.Background(), o))
        assert.Equal(t, uint64(3), o.ID)
    })

    t.Run("rollback on item failure", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewOrderRepo(db)
        mock.ExpectBegin()
        mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(3, 1))
        mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
            WillReturnError(&mysql.MySQLError{Number: 1452, Message: "menu item missing"})
        mock.ExpectRollback()

        err := repo.CreateOrder(context.Background(), &model.Order{ReservationID: 7, CustomerID: 100, State: model.OrderOpen, Items: items})
        assert.ErrorIs(t, err, booking.ErrNotFound)
    })
}

func TestReplaceOrderItems(t *testing.T) {
    items := []model.OrderItem{{MenuItemID: 501, Quantity: 1, UnitPrice: decimal.RequireFromString("6.50")}}
    update := regexp.QuoteMeta("UPDATE orders SET total = ?, updated_at = ? WHERE id = ? AND status = ?")

    t.Run("open order", func(t *testing.T) {
        db, mock := newMock(t)
        repo := &OrderRepo{db: db, now: func() time.Time { return fixedNow }}
        mock.ExpectBegin()
        mock.ExpectExec(update).WithArgs(sqlmock.AnyArg(), fixedNow, uint64(3), "OPEN").WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_id = ?")).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
        mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectCommit()
        mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).WithArgs(uint64(3)).
            WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_id", "customer_id", "status", "total", "created_at", "updated_at"}).
                AddRow(3, 7, 100, "OPEN", "6.50", fixedNow, fixedNow))
        mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id = ?")).WithArgs(uint64(3)).
            WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "quantity", "unit_price"}).AddRow(501, 1, "6.50"))

        o, err := repo.ReplaceOrderItems(context.Background(), 3, items, model.SumItems(items))
        require.NoError(t, err)
        assert.True(t, decimal.RequireFromString("6.5").Equal(o.Total))
        require.Len(t, o.Items, 1)
        assert.Equal(t, uint64(501), o.Items[0].MenuItemID)
    })

    t.Run("finalized order", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewOrderRepo(db)
        mock.ExpectBegin()
        mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
        mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ?")).WithArgs(uint64(3)).
            WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("FINALIZED"))
        mock.ExpectRollback()

        _, err := repo.ReplaceOrderItems(context.Background(), 3, items, model.SumItems(items))
        assert.ErrorIs(t, err, booking.ErrInvalidState)
    })
}

func orderRows() *sqlmock.Rows {
    return sqlmock.NewRows([]string{"id", "reservation_id", "customer_id", "status", "total", "created_at", "updated_at"})
}

func TestListOrdersLoadsItems(t *testing.T) {
    items := regexp.QuoteMeta("FROM order_items WHERE order_id = ?")

    t.Run("by customer", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewOrderRepo(db)
        mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE customer_id = ? ORDER BY id DESC")).WithArgs(uint64(100)).
            WillReturnRows(orderRows().
                AddRow(5, 8, 100, "OPEN", "24.00", fixedNow, fixedNow).
                AddRow(3, 7, 100, "FINALIZED", "13.00", fixedNow, fixedNow))
        mock.ExpectQuery(items).WithArgs(uint64(5)).
            WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "quantity", "unit_price"}).AddRow(502, 1, "24.00"))
        mock.ExpectQuery(items).WithArgs(uint64(3)).
            WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "quantity", "unit_price"}).AddRow(501, 2, "6.50"))

        orders, err := repo.ListOrdersByCustomer(context.Background(), 100)
        require.NoError(t, err)
        require.Len(t, orders, 2)
        assert.Equal(t, uint64(5), orders[0].ID)
        assert.Equal(t, model.OrderFinalized, orders[1].State)
        require.Len(t, orders[1].Items, 1)
        assert.Equal(t, 2, orders[1].Items[0].Quantity)
    })

    t.Run("by restaurant", func(t *testing.T) {
        db, mock := newMock(t)
        repo := NewOrderRepo(db)
        mock.ExpectQuery(regexp.QuoteMeta("JOIN reservations r ON r.id = o.reservation_id WHERE r.restaurant_id = ?")).
            WithArgs(uint64(1)).
            WillReturnRows(orderRows().AddRow(4, 7, 200, "OPEN", "6.50", fixedNow, fixedNow))
        mock.ExpectQuery(items).WithArgs(uint64(4)).
            WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "quantity", "unit_price"}).AddRow(501, 1, "6.50"))

        orders, err := repo.ListOrdersByRestaurant(context.Background(), 1)
        require.NoError(t, err)
        require.Len(t, orders, 1)
        assert.Equal(t, uint64(200), orders[0].CustomerID)
    })
}

func TestCatalogGetTableScopesByRestaurant(t *testing.T) {
    db, mock := newMock(t)
    repo := NewCatalogRepo(db)
    mock.ExpectQuery(regexp.QuoteMeta("FROM restaurant_tables WHERE id = ? AND restaurant_id = ?")).
        WithArgs(uint64(20), uint64(1)).
        WillReturnError(sql.ErrNoRows)

    _, err := repo.GetTable(context.Background(), 1, 20)
    assert.ErrorIs(t, err, booking.ErrNotFound)
}
