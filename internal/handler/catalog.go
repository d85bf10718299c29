package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// CatalogReader lists a restaurant's tables and menu.
type CatalogReader interface {
    ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error)
    ListMenuItems(ctx context.Context, restaurantID uint64, availableOnly bool) ([]model.MenuItem, error)
}

// PublicHandler serves unauthenticated browse endpoints: tables, menu and
// the booked windows of a table.
type PublicHandler struct {
    Catalog CatalogReader
    Manager *booking.Manager
    Log     *logger.Logger
    Now     func() time.Time
}

// NewPublicHandler panics on nil dependencies.
func NewPublicHandler(catalog CatalogReader, m *booking.Manager, log *logger.Logger) *PublicHandler {
    if catalog == nil || m == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Catalog: catalog, Manager: m, Log: log, Now: time.Now}
}

// ListTables handles GET /v1/restaurants/:id/tables.
func (h *PublicHandler) ListTables(c echo.Context) error {
    rid, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid restaurant id")
    }
    tables, err := h.Catalog.ListTables(c.Request().Context(), rid)
    if err != nil {
        return writeError(c, h.Log, "list_tables", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// ListMenu handles GET /v1/restaurants/:id/menu.  ?available=true hides
// items that cannot currently be ordered.
func (h *PublicHandler) ListMenu(c echo.Context) error {
    rid, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid restaurant id")
    }
    items, err := h.Catalog.ListMenuItems(c.Request().Context(), rid, c.QueryParam("available") == "true")
    if err != nil {
        return writeError(c, h.Log, "list_menu", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type bookedWindow struct {
    Start time.Time `json:"start"`
    End   time.Time `json:"end"`
}

// ListSchedule handles GET /v1/restaurants/:id/tables/:table_id/schedule.
// from and to are RFC 3339 timestamps; they default to the current UTC day.
// Only windows are returned, not who booked them.
func (h *PublicHandler) ListSchedule(c echo.Context) error {
    rid, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid restaurant id")
    }
    tid, ok := pathID(c, "table_id")
    if !ok {
        return badRequest(c, "invalid table id")
    }
    from := h.Now().UTC().Truncate(24 * time.Hour)
    to := from.Add(24 * time.Hour)
    if s := c.QueryParam("from"); s != "" {
        t, err := time.Parse(time.RFC3339, s)
        if err != nil {
            return badRequest(c, "from must be an RFC 3339 timestamp")
        }
        from, to = t, t.Add(24*time.Hour)
    }
    if s := c.QueryParam("to"); s != "" {
        t, err := time.Parse(time.RFC3339, s)
        if err != nil {
            return badRequest(c, "to must be an RFC 3339 timestamp")
        }
        to = t
    }
    slots, err := h.Manager.Schedule(c.Request().Context(), rid, tid, booking.Window{Start: from, End: to})
    if err != nil {
        return writeError(c, h.Log, "schedule", err)
    }
    booked := make([]bookedWindow, 0, len(slots))
    for _, s := range slots {
        booked = append(booked, bookedWindow{Start: s.Window.Start, End: s.Window.End})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "table_id": tid,
        "from":     from.UTC(),
        "to":       to.UTC(),
        "booked":   booked,
    })
}
