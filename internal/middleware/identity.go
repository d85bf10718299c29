package middleware

// identity.go holds the context plumbing between JWTAuth and the handlers.
// The verified caller is stored once as a model.Identity; the plain
// "user_id" and "role" keys mirror it for middleware that only needs a
// string or a role name.

import (
    "math"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

const identityKey = "identity"

func setIdentity(c echo.Context, id model.Identity) {
    c.Set(identityKey, id)
    c.Set("user_id", id.UserID)
    c.Set("role", string(id.Role))
}

// IdentityFrom returns the caller verified by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
    id, ok := c.Get(identityKey).(model.Identity)
    return id, ok
}

func parseUserID(v interface{}) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t < 0 || t != math.Trunc(t) || t > math.MaxUint64 {
            return 0, false
        }
        return uint64(t), true
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil
    }
    return 0, false
}

// userKey identifies the caller for rate limiting, "anon" when the request
// is not authenticated.
func userKey(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "anon"
}
