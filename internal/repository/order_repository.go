package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// OrderRepo persists orders and their items.  An order row carries the
// total; order_items holds one row per menu item with the unit price
// captured when the line was written.  Money columns are DECIMAL and map
// to decimal.Decimal in both directions.
type OrderRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo {
    return &OrderRepo{db: db, now: time.Now}
}

const orderColumns = `id, reservation_id, customer_id, status, total, created_at, updated_at`

func scanOrder(row rowScanner) (model.Order, error) {
    var (
        o      model.Order
        status string
    )
    if err := row.Scan(&o.ID, &o.ReservationID, &o.CustomerID, &status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
        return model.Order{}, err
    }
    o.State = model.OrderState(status)
    return o, nil
}

// insertItemsTx writes all items of an order in a single statement.
func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID uint64, items []model.OrderItem) error {
    if len(items) == 0 {
        return nil
    }
    query := `INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price) VALUES `
    args := make([]interface{}, 0, len(items)*4)
    for i, it := range items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, orderID, it.MenuItemID, it.Quantity, it.UnitPrice)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return translate(err)
}

// CreateOrder inserts the order and its items in one transaction and fills
// in the generated ID and timestamps.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer rollback(tx, &committed)

    now := r.now().UTC().Truncate(time.Second)
    const q = `INSERT INTO orders (reservation_id, customer_id, status, total, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, o.ReservationID, o.CustomerID, string(o.State), o.Total, now, now)
    if err != nil {
        return translate(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    if err := insertItemsTx(ctx, tx, uint64(id), o.Items); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    o.ID = uint64(id)
    o.CreatedAt, o.UpdatedAt = now, now
    return nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
    const q = `SELECT menu_item_id, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    items := make([]model.OrderItem, 0)
    for rows.Next() {
        var it model.OrderItem
        if err := rows.Scan(&it.MenuItemID, &it.Quantity, &it.UnitPrice); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// GetOrder loads an order with its items.
func (r *OrderRepo) GetOrder(ctx context.Context, id uint64) (model.Order, error) {
    q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
    o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        return model.Order{}, notFound(err, "order", id)
    }
    if o.Items, err = r.loadItems(ctx, id); err != nil {
        return model.Order{}, err
    }
    return o, nil
}

// ReplaceOrderItems swaps the items and total of an OPEN order.  The status
// guard on the update makes a concurrently finalized order fail with
// booking.ErrInvalidState.
func (r *OrderRepo) ReplaceOrderItems(ctx context.Context, id uint64, items []model.OrderItem, total decimal.Decimal) (model.Order, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Order{}, err
    }
    committed := false
    defer rollback(tx, &committed)

    const upd = `UPDATE orders SET total = ?, updated_at = ? WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, upd, total, r.now().UTC().Truncate(time.Second), id, string(model.OrderOpen))
    if err != nil {
        return model.Order{}, translate(err)
    }
    if n, err := res.RowsAffected(); err != nil {
        return model.Order{}, err
    } else if n == 0 {
        return model.Order{}, r.whyUnchanged(ctx, id, model.OrderOpen)
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
        return model.Order{}, err
    }
    if err := insertItemsTx(ctx, tx, id, items); err != nil {
        return model.Order{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Order{}, err
    }
    committed = true
    return r.GetOrder(ctx, id)
}

// TransitionOrder moves an order between states with a conditional update.
func (r *OrderRepo) TransitionOrder(ctx context.Context, id uint64, from, to model.OrderState) (model.Order, error) {
    const q = `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, string(to), r.now().UTC().Truncate(time.Second), id, string(from))
    if err != nil {
        return model.Order{}, translate(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return model.Order{}, err
    }
    if n == 0 {
        return model.Order{}, r.whyUnchanged(ctx, id, from)
    }
    return r.GetOrder(ctx, id)
}

// whyUnchanged tells a missing order apart from one in another state after
// a conditional update matched nothing.
func (r *OrderRepo) whyUnchanged(ctx context.Context, id uint64, expected model.OrderState) error {
    var status string
    err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
    if err != nil {
        return notFound(err, "order", id)
    }
    return fmt.Errorf("%w: order %d is %s, expected %s", booking.ErrInvalidState, id, status, expected)
}

// ListOrdersByReservation returns every order bound to a reservation in
// creation order, with items.
func (r *OrderRepo) ListOrdersByReservation(ctx context.Context, reservationID uint64) ([]model.Order, error) {
    q := `SELECT ` + orderColumns + ` FROM orders WHERE reservation_id = ? ORDER BY id`
    return r.list(ctx, q, reservationID)
}

// ListOrdersByCustomer returns a customer's orders newest first, with items.
func (r *OrderRepo) ListOrdersByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error) {
    q := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = ? ORDER BY id DESC`
    return r.list(ctx, q, customerID)
}

// ListOrdersByRestaurant returns the orders placed on the restaurant's
// reservations newest first, with items.
func (r *OrderRepo) ListOrdersByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Order, error) {
    q := `SELECT o.id, o.reservation_id, o.customer_id, o.status, o.total, o.created_at, o.updated_at
          FROM orders o JOIN reservations r ON r.id = o.reservation_id
          WHERE r.restaurant_id = ?
          ORDER BY o.id DESC`
    return r.list(ctx, q, restaurantID)
}

// list runs an order query and loads the items of each row once the
// result set is closed.
func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]model.Order, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    orders := make([]model.Order, 0)
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        orders = append(orders, o)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    rows.Close()

    for i := range orders {
        if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
            return nil, err
        }
    }
    return orders, nil
}
