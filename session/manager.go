package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/jrsteele09/go-reserve-client/token/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var _ api.Authenticator = (*Manager)(nil)

// Manager is the single source of truth for authentication state.
//
// Every session gets an epoch; login, restore and logout bump it. Work that
// outlives a network call (profile fetch, reissue, renewal) captures the epoch
// first and drops its result when the epoch has moved on, so a late answer
// from an old session can neither adopt a token nor expire a newer session.
type Manager struct {
	backend        Backend
	store          store.Store
	margin         time.Duration
	reissueTimeout time.Duration
	now            func() time.Time

	mu            sync.Mutex
	state         State
	user          *members.Member
	authenticated bool
	loading       bool
	epoch         uint64
	manualLogouts int
	closed        bool

	timer       *time.Timer
	timerGen    uint64
	nextRenewal time.Time

	reissues singleflight.Group

	handlersLock sync.RWMutex
	handlers     []subscription
	nextHandler  int
}

type subscription struct {
	id int
	h  Handler
}

// New creates a manager over st and installs it as client's authenticator.
// The session starts anonymous and loading until Restore or Login runs.
func New(client Backend, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		backend:        client,
		store:          st,
		margin:         DefaultRenewalMargin,
		reissueTimeout: DefaultReissueTimeout,
		now:            time.Now,
		state:          StateAnonymous,
		loading:        true,
	}
	for _, opt := range opts {
		opt(m)
	}
	client.AttachAuth(m)
	return m
}

// Token returns the stored access token. It implements oauth2.TokenSource.
func (m *Manager) Token() (*oauth2.Token, error) {
	access := m.store.Get(store.KeyAccessToken)
	if access == "" {
		return nil, apperrors.ErrNoAccessToken
	}
	return api.NewToken(access, ""), nil
}

// Restore resumes a session from a stored access token. Without one the
// session becomes anonymous. When the profile cannot be loaded the session is
// expired, unless a manual logout is already under way.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	m.epoch++
	if m.store.Get(store.KeyAccessToken) == "" {
		m.stopTimerLocked()
		m.state = StateAnonymous
		m.authenticated = false
		m.user = nil
		m.loading = false
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.loadProfile(ctx, EventLogin)
}

// Login exchanges credentials for a token pair, stores it and loads the
// profile. Bad credentials leave the session untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	pair, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		if m.state == StateAuthenticating {
			m.state = prev
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.epoch++
	if err := m.storeTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		m.clearLocked()
		m.mu.Unlock()
		return err
	}
	m.authenticated = true
	m.armLocked(pair.AccessToken)
	m.mu.Unlock()

	return m.loadProfile(ctx, EventLogin)
}

func (m *Manager) storeTokens(access, refresh string) error {
	if err := m.store.Set(store.KeyAccessToken, access); err != nil {
		return apperrors.Wrapf(err, "[session Login] store access token")
	}
	if err := m.store.Set(store.KeyRefreshToken, refresh); err != nil {
		return apperrors.Wrapf(err, "[session Login] store refresh token")
	}
	return nil
}

// loadProfile fetches the member behind the stored token and marks the
// session authenticated
func (m *Manager) loadProfile(ctx context.Context, event EventType) error {
	m.mu.Lock()
	epoch := m.epoch
	m.loading = true
	if !m.authenticated {
		m.state = StateAuthenticating
	}
	m.mu.Unlock()

	me, err := m.backend.Me(ctx)
	if err != nil {
		m.mu.Lock()
		m.loading = false
		manual := m.manualLogouts > 0
		m.mu.Unlock()

		if manual {
			return err
		}
		log.Warn().Err(err).Msg("Failed to load profile, expiring session")
		m.expire(ctx, epoch, err)
		return err
	}

	m.mu.Lock()
	m.loading = false
	if m.epoch != epoch || m.closed {
		m.mu.Unlock()
		return apperrors.ErrSessionChanged
	}
	m.user = me
	m.authenticated = true
	m.state = StateAuthenticated
	// A reissue during the fetch may have replaced the token
	m.armLocked(m.store.Get(store.KeyAccessToken))
	user := copyMember(me)
	m.mu.Unlock()

	if event == EventLogin {
		log.Info().Int64("member_id", me.ID).Str("role", string(me.Role)).Msg("Session authenticated")
	}
	m.emit(Event{Type: event, User: user})
	return nil
}

// Logout ends the session. A manual logout tells the backend, then clears the
// local state whether or not the backend call worked, and suppresses any
// "expired" notice raised while it runs. An expired logout clears the state
// and emits EventExpired.
func (m *Manager) Logout(ctx context.Context, reason Reason) error {
	if reason == ReasonExpired {
		m.mu.Lock()
		epoch := m.epoch
		m.mu.Unlock()
		m.expire(ctx, epoch, nil)
		return nil
	}

	m.mu.Lock()
	m.manualLogouts++
	m.stopTimerLocked()
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.manualLogouts--
		m.mu.Unlock()
	}()

	if refresh := m.store.Get(store.KeyRefreshToken); refresh != "" {
		if err := m.backend.Logout(ctx, refresh); err != nil {
			log.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}

	m.mu.Lock()
	err := m.clearLocked()
	m.mu.Unlock()

	log.Info().Msg("Logged out")
	m.emit(Event{Type: EventLogout, Reason: ReasonManual})
	return err
}

// expire force-logs-out the session identified by epoch. Nothing happens when
// that session is already gone or a manual logout is in progress.
func (m *Manager) expire(ctx context.Context, epoch uint64, cause error) {
	m.mu.Lock()
	if m.epoch != epoch || m.manualLogouts > 0 || m.closed {
		m.mu.Unlock()
		return
	}
	if !m.authenticated && m.store.Get(store.KeyAccessToken) == "" {
		// Nothing left to expire
		m.mu.Unlock()
		return
	}
	m.state = StateExpired
	m.stopTimerLocked()
	m.mu.Unlock()

	if refresh := m.store.Get(store.KeyRefreshToken); refresh != "" {
		if err := m.backend.Logout(ctx, refresh); err != nil {
			log.Debug().Err(err).Msg("Backend logout of expired session failed")
		}
	}

	m.mu.Lock()
	if m.epoch != epoch {
		// Someone else ended or replaced the session meanwhile
		m.mu.Unlock()
		return
	}
	notify := m.manualLogouts == 0
	if err := m.clearLocked(); err != nil {
		log.Error().Err(err).Msg("Failed to clear stored tokens")
	}
	m.mu.Unlock()

	m.emit(Event{Type: EventLogout, Reason: ReasonExpired, Err: cause})
	if notify {
		log.Warn().Err(cause).Msg("Session expired")
		m.emit(Event{Type: EventExpired, Reason: ReasonExpired, Err: cause})
	}
}

// clearLocked drops tokens, profile and timer and starts a new epoch
func (m *Manager) clearLocked() error {
	m.stopTimerLocked()
	m.epoch++
	m.user = nil
	m.authenticated = false
	m.loading = false
	m.state = StateAnonymous
	return store.ClearTokens(m.store)
}

// OnUnauthorized is called by the client when a 401 could not be recovered.
// It expires the session the failed reissue belonged to. Causes other than a
// failed reissue, such as a caller that stopped waiting, are ignored.
func (m *Manager) OnUnauthorized(ctx context.Context, cause error) {
	var rf *reissueFailure
	if !apperrors.As(cause, &rf) {
		log.Debug().Err(cause).Msg("Ignoring unauthorized report without a failed reissue")
		return
	}
	m.expire(ctx, rf.epoch, cause)
}

// UpdateProfile renames the member and replaces the cached profile
func (m *Manager) UpdateProfile(ctx context.Context, name string) (*members.Member, error) {
	me, err := m.backend.UpdateMe(ctx, name)
	if err != nil {
		return nil, err
	}
	m.SetProfile(me)
	return copyMember(me), nil
}

// SetProfile replaces the cached profile. It is ignored while anonymous.
func (m *Manager) SetProfile(member *members.Member) {
	m.mu.Lock()
	if !m.authenticated || member == nil {
		m.mu.Unlock()
		return
	}
	m.user = copyMember(member)
	user := copyMember(member)
	m.mu.Unlock()

	m.emit(Event{Type: EventProfileChanged, User: user})
}

// ReloadProfile fetches the profile again
func (m *Manager) ReloadProfile(ctx context.Context) error {
	return m.loadProfile(ctx, EventProfileChanged)
}

// Signup registers a member. It does not sign them in.
func (m *Manager) Signup(ctx context.Context, req api.SignupRequest) error {
	return m.backend.Signup(ctx, req)
}

// Withdraw deletes the member's account and logs out
func (m *Manager) Withdraw(ctx context.Context) error {
	if err := m.backend.WithdrawMe(ctx); err != nil {
		return err
	}
	return m.Logout(ctx, ReasonManual)
}

// Close stops the renewal timer and detaches from the client. Stored tokens
// are kept so a later run can Restore.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopTimerLocked()
	m.mu.Unlock()

	m.backend.AttachAuth(nil)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:         m.state,
		User:          copyMember(m.user),
		Authenticated: m.authenticated,
		Loading:       m.loading,
	}
}

func (m *Manager) User() *members.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyMember(m.user)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers h for session events and returns a function removing it
func (m *Manager) Subscribe(h Handler) (unsubscribe func()) {
	m.handlersLock.Lock()
	defer m.handlersLock.Unlock()

	m.nextHandler++
	id := m.nextHandler
	m.handlers = append(m.handlers, subscription{id: id, h: h})

	return func() {
		m.handlersLock.Lock()
		defer m.handlersLock.Unlock()
		for i, s := range m.handlers {
			if s.id == id {
				m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(e Event) {
	if e.At.IsZero() {
		e.At = m.now()
	}
	m.handlersLock.RLock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, s := range m.handlers {
		handlers = append(handlers, s.h)
	}
	m.handlersLock.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

func copyMember(member *members.Member) *members.Member {
	if member == nil {
		return nil
	}
	c := *member
	return &c
}
