package bookingtest

import (
    "context"
    "sort"
    "sync"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// Catalog is an in-memory TableCatalog and MenuCatalog.
type Catalog struct {
    mu     sync.RWMutex
    tables map[uint64]model.Table
    menu   map[uint64]model.MenuItem
}

func NewCatalog() *Catalog {
    return &Catalog{
        tables: make(map[uint64]model.Table),
        menu:   make(map[uint64]model.MenuItem),
    }
}

// AddTable registers a table and returns the catalog for chaining.
func (c *Catalog) AddTable(restaurantID, tableID uint64, capacity int) *Catalog {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.tables[tableID] = model.Table{ID: tableID, RestaurantID: restaurantID, Capacity: capacity}
    return c
}

// AddMenuItem registers an available menu item priced in whole units and
// cents, e.g. AddMenuItem(1, 10, "12.50").
func (c *Catalog) AddMenuItem(restaurantID, itemID uint64, price string) *Catalog {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.menu[itemID] = model.MenuItem{
        ID:           itemID,
        RestaurantID: restaurantID,
        Price:        decimal.RequireFromString(price),
        Available:    true,
    }
    return c
}

// SetAvailable toggles a menu item's availability.
func (c *Catalog) SetAvailable(itemID uint64, available bool) {
    c.mu.Lock()
    defer c.mu.Unlock()
    mi := c.menu[itemID]
    mi.Available = available
    c.menu[itemID] = mi
}

func (c *Catalog) GetTable(_ context.Context, restaurantID, tableID uint64) (model.Table, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    t, ok := c.tables[tableID]
    if !ok || t.RestaurantID != restaurantID {
        return model.Table{}, booking.ErrNotFound
    }
    return t, nil
}

func (c *Catalog) GetMenuItem(_ context.Context, id uint64) (model.MenuItem, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    mi, ok := c.menu[id]
    if !ok {
        return model.MenuItem{}, booking.ErrNotFound
    }
    return mi, nil
}

// ListTables returns the restaurant's tables ordered by id.
func (c *Catalog) ListTables(_ context.Context, restaurantID uint64) ([]model.Table, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    out := make([]model.Table, 0)
    for _, t := range c.tables {
        if t.RestaurantID == restaurantID {
            out = append(out, t)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

// ListMenuItems returns the restaurant's menu ordered by id.
func (c *Catalog) ListMenuItems(_ context.Context, restaurantID uint64, availableOnly bool) ([]model.MenuItem, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    out := make([]model.MenuItem, 0)
    for _, mi := range c.menu {
        if mi.RestaurantID != restaurantID || (availableOnly && !mi.Available) {
            continue
        }
        out = append(out, mi)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

// Publisher records published events.
type Publisher struct {
    mu     sync.Mutex
    events []booking.Event
    Err    error
}

func (p *Publisher) Publish(_ context.Context, ev booking.Event) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.Err
}

// Types returns the types of the recorded events in publish order.
func (p *Publisher) Types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, 0, len(p.events))
    for _, ev := range p.events {
        out = append(out, ev.Type)
    }
    return out
}
