package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// methods assume JWTAuth has run; ownership and role rules beyond the
// route-level RequireRole are enforced by the booking manager.
type ReservationHandler struct {
    Manager *booking.Manager
    Log     *logger.Logger
}

// NewReservationHandler panics on a nil manager.
func NewReservationHandler(m *booking.Manager, log *logger.Logger) *ReservationHandler {
    if m == nil {
        panic("nil manager passed to NewReservationHandler")
    }
    return &ReservationHandler{Manager: m, Log: log}
}

type bookBody struct {
    RestaurantID uint64    `json:"restaurant_id"`
    TableID      uint64    `json:"table_id"`
    PartySize    int       `json:"party_size"`
    WindowStart  time.Time `json:"window_start"`
    WindowEnd    time.Time `json:"window_end"`
    Notes        string    `json:"notes"`
}

// Create handles POST /v1/reservations.  The window is given as RFC 3339
// timestamps and is stored in UTC.  Returns 201 with the reservation, 409
// when the slot is taken, 422 for invalid input and 503 when the table is
// busy.
func (h *ReservationHandler) Create(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    var body bookBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    res, err := h.Manager.Book(c.Request().Context(), actor, booking.BookRequest{
        RestaurantID: body.RestaurantID,
        TableID:      body.TableID,
        Window:       booking.Window{Start: body.WindowStart, End: body.WindowEnd},
        PartySize:    body.PartySize,
        Notes:        body.Notes,
    })
    if err != nil {
        return writeError(c, h.Log, "book", err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/reservations/:id for the owner or an administrator.
func (h *ReservationHandler) Get(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.Manager.Get(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, h.Log, "get_reservation", err)
    }
    return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id.  The row is kept with status
// CANCELLED; the response is 204 with no body.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    if _, err := h.Manager.Cancel(c.Request().Context(), actor, id); err != nil {
        return writeError(c, h.Log, "cancel", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Confirm handles POST /v1/reservations/:id/confirm (administrators).
func (h *ReservationHandler) Confirm(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.Manager.Confirm(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, h.Log, "confirm", err)
    }
    return c.JSON(http.StatusOK, res)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    list, err := h.Manager.ListMine(c.Request().Context(), actor)
    if err != nil {
        return writeError(c, h.Log, "list_reservations", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
