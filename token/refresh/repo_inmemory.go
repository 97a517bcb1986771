package refresh

import (
	"errors"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

var ErrNotFound = errors.New("refresh token not found")

type InMemoryRepo struct {
	tokens map[string]*StoredRefreshToken
	lock   sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens: make(map[string]*StoredRefreshToken),
	}
}

func (r *InMemoryRepo) Upsert(refreshToken *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tokens[refreshToken.Token] = refreshToken
	return nil
}

func (r *InMemoryRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRepo) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return rt, nil
}

// DeleteByMemberID revokes every refresh token of a member (withdrawal)
func (r *InMemoryRepo) DeleteByMemberID(memberID int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for token, rt := range r.tokens {
		if rt.MemberID == memberID {
			delete(r.tokens, token)
		}
	}
	return nil
}
