package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-reserve-client/token/refresh"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateValidateDelete(t *testing.T) {
	m := refresh.NewManager(refresh.NewInMemoryRepo(), time.Hour)

	token, err := m.Create(1)
	require.NoError(t, err)
	require.Len(t, token, 64)

	rt, err := m.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(1), rt.MemberID)

	require.NoError(t, m.Delete(token))
	_, err = m.Validate(token)
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestManager_Expired(t *testing.T) {
	now := time.Now()
	refresh.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { refresh.NowTimeFunc = time.Now })

	repo := refresh.NewInMemoryRepo()
	m := refresh.NewManager(repo, time.Minute)
	token, err := m.Create(1)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Validate(token)
	require.ErrorContains(t, err, "expired")

	_, err = repo.Get(token)
	require.ErrorIs(t, err, refresh.ErrNotFound)
}

func TestManager_RevokeMember(t *testing.T) {
	m := refresh.NewManager(refresh.NewInMemoryRepo(), time.Hour)
	a, _ := m.Create(1)
	b, _ := m.Create(1)
	c, _ := m.Create(2)

	require.NoError(t, m.RevokeMember(1))

	_, err := m.Validate(a)
	require.Error(t, err)
	_, err = m.Validate(b)
	require.Error(t, err)
	_, err = m.Validate(c)
	require.NoError(t, err)
}
