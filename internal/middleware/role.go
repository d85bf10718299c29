package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated caller has one of the specified roles.  It must run after
// JWTAuth.  Requests with a missing or unlisted role are aborted with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok || !allowed[id.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "role not allowed"})
            }
            return next(c)
        }
    }
}
