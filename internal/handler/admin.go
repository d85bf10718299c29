package handler

// This file defines HTTP handlers for restaurant staff.  Administrators see
// every reservation and order of a restaurant regardless of who made it;
// the ADMIN role is enforced by the router and again by the booking engine.

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

// AdminHandler lists a restaurant's reservations and orders.
type AdminHandler struct {
    Manager *booking.Manager
    Binder  *booking.OrderBinder
    Log     *logger.Logger
}

// NewAdminHandler panics on nil dependencies.
func NewAdminHandler(m *booking.Manager, b *booking.OrderBinder, log *logger.Logger) *AdminHandler {
    if m == nil || b == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Manager: m, Binder: b, Log: log}
}

// ListRestaurantReservations handles GET /v1/restaurants/:id/reservations.
// Reservations in every state are returned, ordered by window start.
func (h *AdminHandler) ListRestaurantReservations(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    rid, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid restaurant id")
    }
    list, err := h.Manager.ListByRestaurant(c.Request().Context(), actor, rid)
    if err != nil {
        return writeError(c, h.Log, "list_restaurant_reservations", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// ListRestaurantOrders handles GET /v1/restaurants/:id/orders, newest first.
func (h *AdminHandler) ListRestaurantOrders(c echo.Context) error {
    actor, err := identity(c)
    if err != nil {
        return unauthorized(c)
    }
    rid, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid restaurant id")
    }
    orders, err := h.Binder.ListByRestaurant(c.Request().Context(), actor, rid)
    if err != nil {
        return writeError(c, h.Log, "list_restaurant_orders", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
