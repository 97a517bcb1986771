package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-reserve-client/api"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/jrsteele09/go-reserve-client/session"
	"github.com/jrsteele09/go-reserve-client/token/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":  "1",
		"role": "ROLE_USER",
		"exp":  exp.Unix(),
		"iat":  exp.Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type fakeBackend struct {
	mu sync.Mutex

	auth api.Authenticator

	reissueCalls int32
	reissueGate  chan struct{}
	reissueErr   error
	nextAccess   string

	loginPair *api.TokenPair
	loginErr  error

	me      *members.Member
	meErr   error
	meCalls int32
	meGate  chan struct{}

	logoutTokens []string
	logoutErr    error
	logoutCalls  int32
	logoutGate   chan struct{}

	withdrawn bool
}

func (f *fakeBackend) AttachAuth(a api.Authenticator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = a
}

func (f *fakeBackend) attached() api.Authenticator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*api.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	pair := *f.loginPair
	return &pair, nil
}

func (f *fakeBackend) Signup(ctx context.Context, req api.SignupRequest) error {
	return nil
}

func (f *fakeBackend) Reissue(ctx context.Context, refreshToken string) (string, error) {
	atomic.AddInt32(&f.reissueCalls, 1)
	f.mu.Lock()
	gate := f.reissueGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reissueErr != nil {
		return "", f.reissueErr
	}
	return f.nextAccess, nil
}

func (f *fakeBackend) Logout(ctx context.Context, refreshToken string) error {
	atomic.AddInt32(&f.logoutCalls, 1)
	f.mu.Lock()
	gate := f.logoutGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutTokens = append(f.logoutTokens, refreshToken)
	return f.logoutErr
}

func (f *fakeBackend) Me(ctx context.Context) (*members.Member, error) {
	atomic.AddInt32(&f.meCalls, 1)
	f.mu.Lock()
	gate := f.meGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	me := *f.me
	return &me, nil
}

func (f *fakeBackend) UpdateMe(ctx context.Context, name string) (*members.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.me.Name = name
	me := *f.me
	return &me, nil
}

func (f *fakeBackend) WithdrawMe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawn = true
	return nil
}

func (f *fakeBackend) calls() int {
	return int(atomic.LoadInt32(&f.reissueCalls))
}

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) handle(e session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t session.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testFixture struct {
	backend *fakeBackend
	store   *store.MemoryStore
	events  *recorder
	manager *session.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T, opts ...session.Option) *testFixture {
	t.Helper()
	now := time.Now()
	f := &testFixture{
		backend: &fakeBackend{
			loginPair: &api.TokenPair{
				AccessToken:  makeToken(t, now.Add(time.Hour)),
				RefreshToken: "refresh-1",
			},
			nextAccess: makeToken(t, now.Add(2*time.Hour)),
			me:         &members.Member{ID: 1, Email: "kim@example.com", Name: "Kim", Role: members.RoleUser},
		},
		store:  store.NewMemoryStore(),
		events: &recorder{},
		now:    now,
	}
	opts = append([]session.Option{session.WithEventHandler(f.events.handle)}, opts...)
	f.manager = session.New(f.backend, f.store, opts...)
	t.Cleanup(f.manager.Close)
	return f
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.Login(context.Background(), "kim@example.com", "Password1"))
	require.True(t, f.manager.IsAuthenticated())
}

func TestNew_AttachesToClient(t *testing.T) {
	f := setupTestFixture(t)
	require.Same(t, f.manager, f.backend.attached())

	snap := f.manager.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.True(t, snap.Loading)
	assert.False(t, snap.Authenticated)
}

func TestLogin_StoresTokensAndLoadsProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	assert.Equal(t, f.backend.loginPair.AccessToken, f.store.Get(store.KeyAccessToken))
	assert.Equal(t, "refresh-1", f.store.Get(store.KeyRefreshToken))

	snap := f.manager.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Kim", snap.User.Name)
	assert.False(t, snap.Loading)
	assert.False(t, f.manager.NextRenewal().IsZero())
	assert.Equal(t, 1, f.events.count(session.EventLogin))

	token, err := f.manager.Token()
	require.NoError(t, err)
	assert.Equal(t, f.backend.loginPair.AccessToken, token.AccessToken)
	assert.Empty(t, token.RefreshToken)
}

func TestLogin_InvalidCredentialsLeaveSessionUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.loginErr = &api.APIError{StatusCode: 401}

	err := f.manager.Login(context.Background(), "kim@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, session.StateAnonymous, f.manager.State())
	assert.Empty(t, f.store.Get(store.KeyAccessToken))
	assert.Zero(t, f.events.count(session.EventExpired))
}

func TestRestore_WithoutToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Restore(context.Background()))

	snap := f.manager.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.User)
}

func TestRestore_WithStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyAccessToken, makeToken(t, f.now.Add(time.Hour))))
	require.NoError(t, f.store.Set(store.KeyRefreshToken, "refresh-1"))

	require.NoError(t, f.manager.Restore(context.Background()))
	assert.True(t, f.manager.IsAuthenticated())
	assert.Equal(t, int64(1), f.manager.User().ID)
	assert.False(t, f.manager.NextRenewal().IsZero())
}

func TestRestore_ProfileFailureExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyAccessToken, makeToken(t, f.now.Add(time.Hour))))
	require.NoError(t, f.store.Set(store.KeyRefreshToken, "refresh-1"))
	f.backend.meErr = errors.New("connection refused")

	require.Error(t, f.manager.Restore(context.Background()))

	assert.False(t, f.manager.IsAuthenticated())
	assert.Empty(t, f.store.Get(store.KeyAccessToken))
	assert.Empty(t, f.store.Get(store.KeyRefreshToken))
	assert.Equal(t, 1, f.events.count(session.EventExpired))
	assert.Equal(t, []string{"refresh-1"}, f.backend.logoutTokens)
}

func TestRestore_ProfileFailureDuringManualLogout(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyAccessToken, makeToken(t, f.now.Add(time.Hour))))
	require.NoError(t, f.store.Set(store.KeyRefreshToken, "refresh-1"))

	meGate, logoutGate := make(chan struct{}), make(chan struct{})
	f.backend.meGate = meGate
	f.backend.logoutGate = logoutGate
	f.backend.meErr = errors.New("connection reset")

	restoreErr := make(chan error, 1)
	go func() { restoreErr <- f.manager.Restore(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.backend.meCalls) == 1 }, time.Second, 5*time.Millisecond)

	logoutErr := make(chan error, 1)
	go func() { logoutErr <- f.manager.Logout(context.Background(), session.ReasonManual) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.backend.logoutCalls) == 1 }, time.Second, 5*time.Millisecond)

	// The profile fetch fails while the backend logout is still running
	close(meGate)
	require.Error(t, <-restoreErr)
	close(logoutGate)
	require.NoError(t, <-logoutErr)

	assert.Zero(t, f.events.count(session.EventExpired))
	assert.Equal(t, 1, f.events.count(session.EventLogout))
	assert.Equal(t, session.StateAnonymous, f.manager.State())
	assert.False(t, f.manager.IsAuthenticated())
	assert.Empty(t, f.store.Get(store.KeyAccessToken))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.backend.logoutCalls))
}

func TestRestore_StartsNewSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.reissueErr = errors.New("refresh token revoked")
	_, staleErr := f.manager.Reissue(context.Background())
	require.Error(t, staleErr)

	// A failure from before the restore belongs to the previous session
	require.NoError(t, f.manager.Restore(context.Background()))
	f.manager.OnUnauthorized(context.Background(), staleErr)
	assert.True(t, f.manager.IsAuthenticated())
	assert.Zero(t, f.events.count(session.EventExpired))
}

func TestRestore_AfterClose(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyAccessToken, makeToken(t, f.now.Add(time.Hour))))
	f.manager.Close()

	require.ErrorIs(t, f.manager.Restore(context.Background()), apperrors.ErrSessionClosed)
	assert.False(t, f.manager.IsAuthenticated())
	assert.Zero(t, atomic.LoadInt32(&f.backend.meCalls))
}

func TestReissue_SingleFlight(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	gate := make(chan struct{})
	f.backend.reissueGate = gate

	const callers = 8
	var ready, done sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	ready.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			token, err := f.manager.Reissue(context.Background())
			errs[i] = err
			if token != nil {
				tokens[i] = token.AccessToken
			}
		}(i)
	}
	ready.Wait()
	require.Eventually(t, func() bool { return f.backend.calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	done.Wait()

	assert.Equal(t, 1, f.backend.calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, f.backend.nextAccess, tokens[i])
	}
	assert.Equal(t, f.backend.nextAccess, f.store.Get(store.KeyAccessToken))
	assert.Equal(t, session.StateAuthenticated, f.manager.State())
	assert.Equal(t, 1, f.events.count(session.EventRenewed))

	// The slot is free again once settled
	_, err := f.manager.Reissue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.backend.calls())
}

func TestReissue_FailureSharedByAllWaiters(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	backendErr := &api.APIError{StatusCode: 401}
	gate := make(chan struct{})
	f.backend.reissueGate = gate
	f.backend.reissueErr = backendErr

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Reissue(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return f.backend.calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.backend.calls())
	for _, err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	// Failure alone does not log out; the caller path decides
	assert.True(t, f.manager.IsAuthenticated())
}

func TestReissue_MissingRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(store.KeyAccessToken, "opaque"))

	_, err := f.manager.Reissue(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	assert.Zero(t, f.backend.calls())
}

func TestReissue_CallerMayStopWaiting(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	gate := make(chan struct{})
	f.backend.reissueGate = gate

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.manager.Reissue(ctx)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.backend.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The shared call carries on and its result is still adopted
	close(gate)
	require.Eventually(t, func() bool {
		return f.store.Get(store.KeyAccessToken) == f.backend.nextAccess
	}, time.Second, 5*time.Millisecond)
}

func TestOnUnauthorized_IgnoresAbandonedWait(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	gate := make(chan struct{})
	f.backend.reissueGate = gate

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.manager.Reissue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The client reports the abandoned wait; the session must survive it
	f.manager.OnUnauthorized(context.Background(), err)
	assert.True(t, f.manager.IsAuthenticated())
	assert.Equal(t, "refresh-1", f.store.Get(store.KeyRefreshToken))

	close(gate)
	require.Eventually(t, func() bool {
		return f.store.Get(store.KeyAccessToken) == f.backend.nextAccess
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.events.count(session.EventExpired))
	assert.Equal(t, 1, f.events.count(session.EventRenewed))
}

func TestLogout_ClearsState(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonManual))

	snap := f.manager.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.User)
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.Empty(t, f.store.Get(store.KeyAccessToken))
	assert.Empty(t, f.store.Get(store.KeyRefreshToken))
	assert.True(t, f.manager.NextRenewal().IsZero())

	assert.Equal(t, []string{"refresh-1"}, f.backend.logoutTokens)
	assert.Equal(t, 1, f.events.count(session.EventLogout))
	assert.Zero(t, f.events.count(session.EventExpired))

	_, err := f.manager.Token()
	require.ErrorIs(t, err, apperrors.ErrNoAccessToken)
}

func TestLogout_ManualClearsEvenWhenBackendFails(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.logoutErr = errors.New("backend down")

	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonManual))
	assert.False(t, f.manager.IsAuthenticated())
	assert.Empty(t, f.store.Get(store.KeyRefreshToken))
}

func TestLogout_ExpiredNotifies(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonExpired))
	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, 1, f.events.count(session.EventExpired))

	// A second expiry of an already cleared session says nothing
	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonExpired))
	assert.Equal(t, 1, f.events.count(session.EventExpired))
}

func TestOnUnauthorized_IgnoresStaleSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.reissueErr = errors.New("refresh token revoked")
	_, staleErr := f.manager.Reissue(context.Background())
	require.Error(t, staleErr)

	// The member logs out and back in before the failure is reported
	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonManual))
	f.login(t)

	f.manager.OnUnauthorized(context.Background(), staleErr)
	assert.True(t, f.manager.IsAuthenticated())
	assert.Zero(t, f.events.count(session.EventExpired))

	// A failure of the current session does expire it
	_, currentErr := f.manager.Reissue(context.Background())
	require.Error(t, currentErr)
	f.manager.OnUnauthorized(context.Background(), currentErr)
	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, 1, f.events.count(session.EventExpired))
}

func TestUpdateProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	me, err := f.manager.UpdateProfile(context.Background(), "Lee")
	require.NoError(t, err)
	assert.Equal(t, "Lee", me.Name)
	assert.Equal(t, "Lee", f.manager.User().Name)
	assert.Equal(t, 1, f.events.count(session.EventProfileChanged))

	// The returned snapshot is a copy
	me.Name = "changed"
	assert.Equal(t, "Lee", f.manager.User().Name)
}

func TestReloadProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.mu.Lock()
	f.backend.me.Name = "Park"
	f.backend.mu.Unlock()

	require.NoError(t, f.manager.ReloadProfile(context.Background()))
	assert.Equal(t, "Park", f.manager.User().Name)
	assert.Equal(t, 1, f.events.count(session.EventProfileChanged))
	assert.Equal(t, 1, f.events.count(session.EventLogin))
}

func TestSetProfile_IgnoredWhenAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.SetProfile(&members.Member{ID: 9, Name: "Ghost"})
	assert.Nil(t, f.manager.User())
	assert.Zero(t, f.events.count(session.EventProfileChanged))
}

func TestWithdraw_LogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.manager.Withdraw(context.Background()))
	assert.True(t, f.backend.withdrawn)
	assert.False(t, f.manager.IsAuthenticated())
	assert.Empty(t, f.store.Get(store.KeyRefreshToken))
}

func TestClose_DetachesAndStopsTimer(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	require.False(t, f.manager.NextRenewal().IsZero())

	f.manager.Close()
	assert.Nil(t, f.backend.attached())
	assert.True(t, f.manager.NextRenewal().IsZero())

	_, err := f.manager.Reissue(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionClosed)

	// Tokens survive for the next run
	assert.NotEmpty(t, f.store.Get(store.KeyAccessToken))
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	f := setupTestFixture(t)

	var calls int32
	unsubscribe := f.manager.Subscribe(func(session.Event) { atomic.AddInt32(&calls, 1) })
	f.login(t)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	unsubscribe()
	require.NoError(t, f.manager.Logout(context.Background(), session.ReasonManual))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
