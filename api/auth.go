package api

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/token/jwt"
	"golang.org/x/oauth2"
)

// TokenPair is the login response
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type reissueRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type reissueResponse struct {
	AccessToken string `json:"accessToken"`
}

// NewToken wraps raw credentials as an oauth2.Token. Expiry comes from the
// access token's exp claim and stays zero when it cannot be read.
func NewToken(accessToken, refreshToken string) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if exp, ok := jwt.ExpiresAt(accessToken); ok {
		token.Expiry = exp
	}
	return token
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	if err := c.doJSON(ctx, http.MethodPost, RouteAuthLogin, nil, LoginRequest{Email: email, Password: password}, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrNoAccessToken, "[api Login]")
	}
	return &pair, nil
}

// Signup registers a member. Validation failures come back as an *APIError
// whose Body carries the field errors.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.doJSON(ctx, http.MethodPost, RouteAuthSignup, nil, req, nil)
}

// Reissue trades a refresh token for a new access token
func (c *Client) Reissue(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperrors.ErrNoRefreshToken
	}

	var resp reissueResponse
	if err := c.doJSON(ctx, http.MethodPost, RouteAuthReissue, nil, reissueRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", apperrors.Wrapf(apperrors.ErrNoAccessToken, "[api Reissue]")
	}
	return resp.AccessToken, nil
}

// Logout revokes refreshToken on the backend
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.doJSON(ctx, http.MethodPost, RouteAuthLogout, nil, reissueRequest{RefreshToken: refreshToken}, nil)
}
