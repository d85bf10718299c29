package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// OrderHandler binds orders to reservations.
type OrderHandler struct {
    Binder *booking.OrderBinder
    Log    *logger.Logger
}

// NewOrderHandler panics on a nil binder.
func NewOrderHandler(b *booking.OrderBinder, log *logger.Logger) *OrderHandler {
    if b == nil {
        panic("nil binder passed to NewOrderHandler")
    }
    return &OrderHandler{Binder: b, Log: log}
}

type orderBody struct {
    ReservationID uint64           `json:"reservation_id"`
    Items         []model.LineItem `json:"items"`
}

// Create handles POST /v1/orders with {"reservation_id", "items": [{"menu_item_id", "quantity"}]}.
func (h *OrderHandler) Create(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    var body orderBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.ReservationID == 0 {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation_failed", "message": "reservation_id is required"})
    }
    o, err := h.Binder.AttachOrder(c.Request().Context(), actor, body.ReservationID, body.Items)
    if err != nil {
        return writeError(c, h.Log, "attach_order", err)
    }
    return c.JSON(http.StatusCreated, o)
}

// Get handles GET /v1/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid order id")
    }
    o, err := h.Binder.GetOrder(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, h.Log, "get_order", err)
    }
    return c.JSON(http.StatusOK, o)
}

// Modify handles PATCH /v1/orders/:id.  The items in the body replace the
// current items.
func (h *OrderHandler) Modify(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid order id")
    }
    var body struct {
        Items []model.LineItem `json:"items"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    o, err := h.Binder.ModifyOrder(c.Request().Context(), actor, id, body.Items)
    if err != nil {
        return writeError(c, h.Log, "modify_order", err)
    }
    return c.JSON(http.StatusOK, o)
}

// Finalize handles POST /v1/orders/:id/finalize (administrators).
func (h *OrderHandler) Finalize(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid order id")
    }
    o, err := h.Binder.FinalizeOrder(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, h.Log, "finalize_order", err)
    }
    return c.JSON(http.StatusOK, o)
}

// ListByReservation handles GET /v1/reservations/:id/orders.
func (h *OrderHandler) ListByReservation(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    orders, err := h.Binder.ListOrders(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, h.Log, "list_orders", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// ListMine handles GET /v1/my-orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    orders, err := h.Binder.ListMine(c.Request().Context(), actor)
    if err != nil {
        return writeError(c, h.Log, "list_my_orders", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
