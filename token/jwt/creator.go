package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-reserve-client/members"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator mints HS256 access tokens. Only the development backend signs tokens.
type Creator struct {
	secret []byte
	issuer string
}

// NewCreator creates a new JWT creator
func NewCreator(secret, issuer string) *Creator {
	return &Creator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// CreateAccessToken creates an access token for member valid for ttl. A negative
// ttl yields an already expired token.
func (c *Creator) CreateAccessToken(member *members.Member, ttl time.Duration) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":   c.issuer,
		"sub":   fmt.Sprintf("%d", member.ID),
		"email": member.Email,
		"role":  string(member.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.New().String(),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the decoded claims
func (c *Creator) Verify(rawToken string) (*Claims, error) {
	token, err := jwtlib.Parse(rawToken, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithTimeFunc(NowTimeFunc), jwtlib.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return Decode(rawToken)
}
