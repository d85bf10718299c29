package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and turns its claims into a model.Identity.  Only HS256 tokens signed
// with secret are accepted, and both the numeric subject and a known role
// are required.  Handlers read the caller with IdentityFrom; "user_id" and
// "role" are also set for RequireRole and the rate limiter.
func JWTAuth(secret string) echo.MiddlewareFunc {
    parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims := jwt.MapClaims{}
            tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
            }

            id, ok := identityFromClaims(claims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid claims"})
            }
            setIdentity(c, id)
            return next(c)
        }
    }
}

// identityFromClaims accepts "sub" as a JSON number (how NewAccessToken
// writes it) or a decimal string.
func identityFromClaims(claims jwt.MapClaims) (model.Identity, bool) {
    uid, ok := parseUserID(claims["sub"])
    if !ok || uid == 0 {
        return model.Identity{}, false
    }
    role, _ := claims["role"].(string)
    switch model.Role(role) {
    case model.RoleCustomer, model.RoleAdmin:
    default:
        return model.Identity{}, false
    }
    return model.Identity{UserID: uid, Role: model.Role(role)}, true
}
