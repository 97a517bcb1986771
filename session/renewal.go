package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/token/jwt"
	"github.com/jrsteele09/go-reserve-client/token/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const reissueKey = "reissue"

// reissueFailure remembers which session a failed reissue belonged to
type reissueFailure struct {
	epoch uint64
	err   error
}

func (e *reissueFailure) Error() string {
	return fmt.Sprintf("token reissue failed: %v", e.err)
}

func (e *reissueFailure) Unwrap() error {
	return e.err
}

// Reissue obtains a new access token with the stored refresh token. Callers
// arriving while a reissue is in flight wait for that one instead of starting
// another; all of them get the same token or the same error. ctx only bounds
// this caller's wait.
func (m *Manager) Reissue(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, apperrors.ErrSessionClosed
	}

	ch := m.reissues.DoChan(reissueKey, func() (any, error) {
		return m.reissue()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		token := *res.Val.(*oauth2.Token)
		return &token, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// reissue is the single backend call shared by concurrent Reissue callers
func (m *Manager) reissue() (*oauth2.Token, error) {
	m.mu.Lock()
	epoch := m.epoch
	if m.state == StateAuthenticated {
		m.state = StateRenewing
	}
	m.mu.Unlock()

	refresh := m.store.Get(store.KeyRefreshToken)
	if refresh == "" {
		m.endRenewing(epoch)
		return nil, &reissueFailure{epoch: epoch, err: apperrors.ErrNoRefreshToken}
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.reissueTimeout)
	defer cancel()

	access, err := m.backend.Reissue(ctx, refresh)
	if err != nil {
		m.endRenewing(epoch)
		return nil, &reissueFailure{epoch: epoch, err: err}
	}

	m.mu.Lock()
	if m.epoch != epoch || m.closed {
		m.mu.Unlock()
		return nil, &reissueFailure{epoch: epoch, err: apperrors.ErrSessionChanged}
	}
	if err := m.store.Set(store.KeyAccessToken, access); err != nil {
		m.mu.Unlock()
		m.endRenewing(epoch)
		return nil, &reissueFailure{epoch: epoch, err: apperrors.Wrapf(err, "[session Reissue] store access token")}
	}
	if m.state == StateRenewing {
		m.state = StateAuthenticated
	}
	m.armLocked(access)
	user := copyMember(m.user)
	m.mu.Unlock()

	log.Debug().Msg("Access token reissued")
	m.emit(Event{Type: EventRenewed, User: user})
	return api.NewToken(access, ""), nil
}

func (m *Manager) endRenewing(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == epoch && m.state == StateRenewing {
		m.state = StateAuthenticated
	}
}

// ScheduleRenewal arms the renewal timer from accessToken's expiry, replacing
// any earlier timer
func (m *Manager) ScheduleRenewal(accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.armLocked(accessToken)
}

// NextRenewal returns when the live renewal timer fires, or the zero time when
// none is armed
func (m *Manager) NextRenewal() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextRenewal
}

// armLocked fires margin before expiry. A token with less than margin left is
// renewed halfway through its remaining life; an expired or unreadable token
// gets no timer and relies on 401 recovery.
func (m *Manager) armLocked(accessToken string) {
	m.stopTimerLocked()

	exp, ok := jwt.ExpiresAt(accessToken)
	if !ok {
		return
	}
	now := m.now()
	remaining := exp.Sub(now)
	if remaining <= 0 {
		return
	}
	delay := remaining - m.margin
	if delay <= 0 {
		delay = remaining / 2
	}

	gen := m.timerGen
	epoch := m.epoch
	m.nextRenewal = now.Add(delay)
	m.timer = time.AfterFunc(delay, func() {
		m.onRenewalTimer(gen, epoch)
	})
}

// stopTimerLocked cancels the live timer. Bumping the generation also turns a
// callback that already started into a no-op.
func (m *Manager) stopTimerLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.nextRenewal = time.Time{}
}

func (m *Manager) onRenewalTimer(gen, epoch uint64) {
	m.mu.Lock()
	if gen != m.timerGen || epoch != m.epoch || m.closed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.nextRenewal = time.Time{}
	if m.manualLogouts > 0 {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// The shared backend call is already bounded by reissueTimeout
	if _, err := m.Reissue(context.Background()); err != nil {
		if apperrors.Is(err, apperrors.ErrNoRefreshToken) {
			log.Debug().Msg("No refresh token, skipping scheduled renewal")
			return
		}
		log.Warn().Err(err).Msg("Scheduled token renewal failed")
		ctx, cancel := context.WithTimeout(context.Background(), m.reissueTimeout)
		defer cancel()
		m.expire(ctx, epoch, err)
	}
}
