package utils // package utils provides helper functions for token creation

import (
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT carrying the claims that
// middleware.JWTAuth expects: sub (numeric user id), role, exp and iat.
// Identity issuance belongs to the platform; the service uses this for
// tests and the tokengen command.
func NewAccessToken(secret string, id model.Identity, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  id.UserID,
        "role": string(id.Role),
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
