package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/restaurant-reservation/internal/handler"    // handlers implementing each endpoint
    "github.com/iliyamo/restaurant-reservation/internal/middleware" // JWT authentication, roles and rate limiting
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication and
// are never cached.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the unauthenticated browse endpoints.  Tables
// and menus go through the response cache; schedules change with every
// booking and are served live.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
    g := e.Group("/v1/restaurants")
    g.GET("/:id/tables", p.ListTables, cache)
    g.GET("/:id/menu", p.ListMenu, cache)
    g.GET("/:id/tables/:table_id/schedule", p.ListSchedule)
}

// RegisterBooking registers the reservation and order endpoints under /v1.
// Every route requires a valid JWT with the CUSTOMER or ADMIN role and is
// rate limited per caller.  Confirming reservations and finalizing orders
// is reserved to administrators; ownership of individual reservations is
// checked by the booking engine.
func RegisterBooking(e *echo.Echo, r *handler.ReservationHandler, o *handler.OrderHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
        limiter,
    )
    admin := middleware.RequireRole(model.RoleAdmin)

    g.POST("/reservations", r.Create)
    g.GET("/reservations/:id", r.Get)
    g.DELETE("/reservations/:id", r.Cancel)
    g.POST("/reservations/:id/confirm", r.Confirm, admin)
    g.GET("/my-reservations", r.ListMine)
    g.GET("/my-orders", o.ListMine)

    g.POST("/orders", o.Create)
    g.GET("/orders/:id", o.Get)
    g.PATCH("/orders/:id", o.Modify)
    g.POST("/orders/:id/finalize", o.Finalize, admin)
    g.GET("/reservations/:id/orders", o.ListByReservation)
}
