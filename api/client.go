// Package api is the HTTP client for the reservation backend. Every request goes
// through Client.Do, which attaches the current bearer token and recovers once
// from an expired token by asking the attached Authenticator for a new one.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	HeaderRequestID = "X-Request-ID"

	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "go-reserve-client"
)

// Authenticator is the capability the session owner lends the client: read the
// current token, obtain a new one, and be told when recovery is impossible.
type Authenticator interface {
	oauth2.TokenSource

	// Reissue returns a fresh access token. Concurrent calls share one backend call.
	Reissue(ctx context.Context) (*oauth2.Token, error)

	// OnUnauthorized is called once per request whose 401 could not be recovered
	// because Reissue failed. cause is the Reissue error.
	OnUnauthorized(ctx context.Context, cause error)
}

// Auth endpoints never go through 401 recovery
var authEndpoints = []string{
	RouteAuthLogin,
	RouteAuthSignup,
	RouteAuthReissue,
	RouteAuthLogout,
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	metrics    *metrics

	authLock sync.RWMutex
	auth     Authenticator
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMetrics registers the client's counters with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// AttachAuth installs a as the client's authenticator, replacing any earlier one.
// A nil a detaches.
func (c *Client) AttachAuth(a Authenticator) {
	c.authLock.Lock()
	defer c.authLock.Unlock()
	c.auth = a
}

func (c *Client) authenticator() Authenticator {
	c.authLock.RLock()
	defer c.authLock.RUnlock()
	return c.auth
}

// Do sends req with the current bearer token. A 2xx or 3xx response is returned
// as is; anything else is returned as an *APIError with the body consumed.
//
// A 401 from a non-auth endpoint triggers one Reissue and one replay of the
// request with the new token. If Reissue fails, OnUnauthorized is called and
// the original 401 is returned. If ctx ends while waiting for the reissue, the
// context error is returned and OnUnauthorized is not called. A 401 on the
// replay is returned without further recovery.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.Clone(ctx)
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	auth := c.authenticator()
	if auth != nil {
		c.attachToken(req, auth)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		return resp, nil
	}

	apiErr := newAPIError(req, resp)
	if resp.StatusCode != http.StatusUnauthorized || auth == nil || isAuthEndpoint(req.URL.Path) {
		return nil, apiErr
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		c.metrics.recovery(OutcomeNotReplayable)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrNotReplayable, apiErr)
	}

	token, err := auth.Reissue(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && apperrors.Is(err, ctxErr) {
			// The caller gave up waiting; the reissue itself may still succeed
			c.metrics.recovery(OutcomeAbandoned)
			return nil, fmt.Errorf("[api %s %s] waiting for token reissue: %w", req.Method, req.URL.Path, ctxErr)
		}
		c.metrics.recovery(OutcomeReissueFailed)
		log.Debug().Err(err).Str("path", req.URL.Path).Msg("Token reissue failed, request not recovered")
		auth.OnUnauthorized(ctx, err)
		return nil, apiErr
	}

	retry, err := replay(ctx, req, token)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(retry)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		c.metrics.recovery(OutcomeRecovered)
		return resp, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.metrics.recovery(OutcomeRejectedAgain)
	} else {
		c.metrics.recovery(OutcomeRecovered)
	}
	return nil, newAPIError(retry, resp)
}

func (c *Client) attachToken(req *http.Request, auth Authenticator) {
	token, err := auth.Token()
	if err != nil || token == nil || token.AccessToken == "" {
		return
	}
	token.SetAuthHeader(req)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.request(req.Method, 0)
		log.Debug().
			Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get(HeaderRequestID)).
			Msg("Request failed")
		return nil, fmt.Errorf("[api Do] %s %s: %w", req.Method, req.URL.Path, err)
	}

	c.metrics.request(req.Method, resp.StatusCode)
	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Msg("Request")
	return resp, nil
}

// replay copies req for a second attempt with token in place of the old header
func replay(ctx context.Context, req *http.Request, token *oauth2.Token) (*http.Request, error) {
	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("[api Do] replay body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Del("Authorization")
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(retry)
	}
	return retry, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 400
}

func isAuthEndpoint(path string) bool {
	for _, endpoint := range authEndpoints {
		if strings.Contains(path, endpoint) {
			return true
		}
	}
	return false
}

// NewRequest builds a request for path relative to the base URL. A non-nil body
// is encoded as JSON and can be replayed.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[api NewRequest] encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("[api NewRequest] %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends a request and decodes a JSON response into out when out is non-nil
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.NewRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("[api %s %s] decode response: %w", method, path, err)
	}
	return nil
}

// doText sends a request and returns the response body as text. A JSON string
// body is unquoted.
func (c *Client) doText(ctx context.Context, method, path string, query url.Values, in any) (string, error) {
	req, err := c.NewRequest(ctx, method, path, query, in)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("[api %s %s] read response: %w", method, path, err)
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s, nil
	}
	return strings.TrimSpace(string(data)), nil
}
