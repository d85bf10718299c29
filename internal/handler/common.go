package handler // handler defines http handlers

import (
    "context"
    "errors"   // errors.Is classifies booking failures
    "net/http" // HTTP status codes
    "strconv"  // strconv converts path parameters

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// retryAfterSeconds is advertised on 503 responses caused by table lock
// contention.
const retryAfterSeconds = "1"

// errUnauthorized is returned by identity when JWTAuth did not run.
var errUnauthorized = errors.New("unauthorized")

// identity returns the authenticated caller.
func identity(c echo.Context) (model.Identity, error) {
    id, ok := middleware.IdentityFrom(c)
    if !ok {
        return model.Identity{}, errUnauthorized
    }
    return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || n == 0 {
        return 0, false
    }
    return n, true
}

func badRequest(c echo.Context, message string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": message})
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
}

// classify maps a booking error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
    switch {
    case errors.Is(err, booking.ErrCapacity):
        return http.StatusUnprocessableEntity, "capacity_exceeded"
    case errors.Is(err, booking.ErrValidation):
        return http.StatusUnprocessableEntity, "validation_failed"
    case errors.Is(err, booking.ErrConflict):
        return http.StatusConflict, "slot_unavailable"
    case errors.Is(err, booking.ErrInvalidState):
        return http.StatusConflict, "invalid_state"
    case errors.Is(err, booking.ErrBusy):
        return http.StatusServiceUnavailable, "busy"
    case errors.Is(err, booking.ErrForbidden):
        return http.StatusForbidden, "forbidden"
    case errors.Is(err, booking.ErrNotFound):
        return http.StatusNotFound, "not_found"
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusServiceUnavailable, "timeout"
    }
    return http.StatusInternalServerError, "internal_error"
}

// writeError renders err as {"error": code, "message": text}.  Internal
// errors are logged with the request id and their text is not exposed.
func writeError(c echo.Context, log *logger.Logger, action string, err error) error {
    status, code := classify(err)
    msg := err.Error()
    switch status {
    case http.StatusServiceUnavailable:
        c.Response().Header().Set("Retry-After", retryAfterSeconds)
    case http.StatusInternalServerError:
        log.Error(c.Request().Context(), action, "request failed", err)
        msg = "internal error"
    }
    return c.JSON(status, echo.Map{"error": code, "message": msg})
}
