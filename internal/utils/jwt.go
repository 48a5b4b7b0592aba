package utils // package utils provides helpers for bearer-token inspection and session ids

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT bearer token. The signature is
// not verified: the backend issued the token and stays authoritative, the
// front end only needs to know when to stop presenting it. ok is false when
// the token is not a JWT or carries no exp claim.
func TokenExpiry(raw string) (exp time.Time, ok bool) {
	if raw == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	t, err := claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false
	}
	return t.Time.UTC(), true
}

// TokenExpired reports whether raw is a JWT whose exp lies before now.
// Opaque tokens never expire on the client side.
func TokenExpired(raw string, now time.Time) bool {
	exp, ok := TokenExpiry(raw)
	return ok && !now.Before(exp)
}
