package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const tokenLength = 32 // 32 bytes = 256 bits

// Manager handles refresh token creation, validation and revocation
type Manager struct {
	repo Repo
	ttl  time.Duration
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, ttl time.Duration) *Manager {
	return &Manager{
		repo: repo,
		ttl:  ttl,
	}
}

// Create generates a new refresh token for memberID and stores it
func (m *Manager) Create(memberID int64) (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:    tokenStr,
		MemberID: memberID,
		Iat:      NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Validate returns the stored record for token. Expired tokens are deleted.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, err
	}
	if NowTimeFunc().Sub(rt.Iat) > m.ttl {
		_ = m.repo.Delete(token)
		return nil, fmt.Errorf("refresh token expired")
	}
	return rt, nil
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// RevokeMember removes all refresh tokens of memberID
func (m *Manager) RevokeMember(memberID int64) error {
	return m.repo.DeleteByMemberID(memberID)
}
