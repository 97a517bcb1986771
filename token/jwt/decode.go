package jwt

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
)

// Claims is the subset of the access token payload the client cares about.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Decode reads the payload of a JWT without verifying its signature. The client
// never holds the signing key; the payload is only used for scheduling and display.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[jwt Decode] %v", err)
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.Email, _ = mapClaims["email"].(string)
	claims.ID, _ = mapClaims["jti"].(string)

	// Spring backends put the authority under "auth"; ours also accept "role"
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	} else if role, ok := mapClaims["auth"].(string); ok {
		claims.Role = role
	}

	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ExpiresAt returns the token's exp claim. ok is false for malformed tokens and
// tokens without an exp claim.
func ExpiresAt(rawToken string) (exp time.Time, ok bool) {
	claims, err := Decode(rawToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}
