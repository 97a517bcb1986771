// Package session owns the signed in member's session: the stored token pair,
// the profile snapshot, silent renewal before the access token expires, and
// the login/logout state machine. A Manager is the only writer of that state.
package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/members"
)

const (
	DefaultRenewalMargin  = 30 * time.Second
	DefaultReissueTimeout = 15 * time.Second
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateRenewing
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRenewing:
		return "renewing"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Reason tells a logout the user asked for from one forced by a dead session
type Reason string

const (
	ReasonManual  Reason = "manual"
	ReasonExpired Reason = "expired"
)

type EventType int

const (
	EventLogin EventType = iota
	EventLogout
	// EventExpired asks the front end to send the user back to the login
	// screen with a "session expired" notice
	EventExpired
	EventRenewed
	EventProfileChanged
)

func (t EventType) String() string {
	switch t {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventExpired:
		return "expired"
	case EventRenewed:
		return "renewed"
	case EventProfileChanged:
		return "profile_changed"
	}
	return "unknown"
}

type Event struct {
	Type   EventType
	User   *members.Member
	Reason Reason
	Err    error
	At     time.Time
}

// Handler receives session events synchronously. It must not block or call
// back into Reissue.
type Handler func(Event)

// Snapshot is a consistent copy of the observable session state
type Snapshot struct {
	State         State
	User          *members.Member
	Authenticated bool
	Loading       bool
}

// Backend is the part of the API client the manager drives. *api.Client
// satisfies it.
type Backend interface {
	AttachAuth(a api.Authenticator)
	Login(ctx context.Context, email, password string) (*api.TokenPair, error)
	Signup(ctx context.Context, req api.SignupRequest) error
	Reissue(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*members.Member, error)
	UpdateMe(ctx context.Context, name string) (*members.Member, error)
	WithdrawMe(ctx context.Context) error
}

var _ Backend = (*api.Client)(nil)

type Option func(*Manager)

// WithRenewalMargin sets how long before expiry the renewal timer fires
func WithRenewalMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.margin = d
	}
}

// WithReissueTimeout bounds the shared reissue call. It runs detached from the
// callers' contexts so one caller giving up does not fail the others.
func WithReissueTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.reissueTimeout = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithEventHandler(h Handler) Option {
	return func(m *Manager) {
		m.Subscribe(h)
	}
}
