package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// CatalogRepo reads restaurant tables and menu items.  The catalog is
// maintained outside this service, so the repository is read-only.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetTable returns the table only if it belongs to the restaurant.
func (r *CatalogRepo) GetTable(ctx context.Context, restaurantID, tableID uint64) (model.Table, error) {
    const q = `SELECT id, restaurant_id, name, capacity FROM restaurant_tables WHERE id = ? AND restaurant_id = ?`
    var t model.Table
    err := r.db.QueryRowContext(ctx, q, tableID, restaurantID).Scan(&t.ID, &t.RestaurantID, &t.Name, &t.Capacity)
    if err != nil {
        return model.Table{}, notFound(err, "table", tableID)
    }
    return t, nil
}

// ListTables returns the tables of a restaurant ordered by id.
func (r *CatalogRepo) ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
    const q = `SELECT id, restaurant_id, name, capacity FROM restaurant_tables WHERE restaurant_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, restaurantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Table, 0)
    for rows.Next() {
        var t model.Table
        if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Name, &t.Capacity); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// GetMenuItem returns a menu item regardless of availability; callers
// decide whether an unavailable item is acceptable.
func (r *CatalogRepo) GetMenuItem(ctx context.Context, id uint64) (model.MenuItem, error) {
    const q = `SELECT id, restaurant_id, name, price, is_available FROM menu_items WHERE id = ?`
    var m model.MenuItem
    err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Available)
    if err != nil {
        return model.MenuItem{}, notFound(err, "menu item", id)
    }
    return m, nil
}

// ListMenuItems returns the menu of a restaurant.  When availableOnly is
// true, unavailable items are left out.
func (r *CatalogRepo) ListMenuItems(ctx context.Context, restaurantID uint64, availableOnly bool) ([]model.MenuItem, error) {
    q := `SELECT id, restaurant_id, name, price, is_available FROM menu_items WHERE restaurant_id = ?`
    if availableOnly {
        q += ` AND is_available = 1`
    }
    q += ` ORDER BY name, id`
    rows, err := r.db.QueryContext(ctx, q, restaurantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.MenuItem, 0)
    for rows.Next() {
        var m model.MenuItem
        if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Available); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
