package router

// This file registers the restaurant staff routes.  They are kept apart
// from the customer booking routes so that the ADMIN gate applies to the
// whole group.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/handler"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// RegisterAdmin registers the restaurant-wide listings.  All routes require
// a JWT with the ADMIN role and share the caller rate limit.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    g := e.Group(
        "/v1/restaurants",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAdmin),
        limiter,
    )
    g.GET("/:id/reservations", h.ListRestaurantReservations)
    g.GET("/:id/orders", h.ListRestaurantOrders)
}
