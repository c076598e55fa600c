package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

func newTestPrincipals(t *testing.T, ttl time.Duration) (*Principals, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPrincipals(rdb, "test:principal", ttl), mr
}

func sampleEntry() *Entry {
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Entry{
		User: store.UserRecord{
			ID:           "u-1",
			Email:        "ana@example.com",
			Username:     "ana",
			PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
			Confirmed:    true,
			Since:        since,
			LastSeen:     since.Add(time.Hour),
			RoleID:       "r-1",
		},
		Role: &store.RoleRecord{ID: "r-1", Name: "Member", Permissions: 0x0F},
	}
}

func TestPrincipalsRoundTrip(t *testing.T) {
	p, _ := newTestPrincipals(t, time.Minute)
	ctx := context.Background()

	want := sampleEntry()
	require.NoError(t, p.Set(ctx, want))

	got, err := p.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, want.User.Email, got.User.Email)
	assert.True(t, want.User.Since.Equal(got.User.Since))
	require.NotNil(t, got.Role)
	assert.Equal(t, permission.Mask(0x0F), got.Role.Permissions)
	assert.Equal(t, "Member", got.Role.Name)
}

func TestPrincipalsRoleless(t *testing.T) {
	p, _ := newTestPrincipals(t, time.Minute)
	ctx := context.Background()

	e := sampleEntry()
	e.User.RoleID = ""
	e.Role = nil
	require.NoError(t, p.Set(ctx, e))

	got, err := p.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.Role)
}

func TestPrincipalsMissAndExpiry(t *testing.T) {
	p, mr := newTestPrincipals(t, time.Minute)
	ctx := context.Background()

	_, err := p.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, p.Set(ctx, sampleEntry()))
	mr.FastForward(2 * time.Minute)

	_, err = p.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestPrincipalsCorruptEntryIsEvicted(t *testing.T) {
	p, mr := newTestPrincipals(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:principal:u-1", "{not json"))

	_, err := p.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mr.Exists("test:principal:u-1"))

	require.NoError(t, mr.Set("test:principal:u-2", `{"v":7,"u":{"id":"u-2"}}`))
	_, err = p.Get(ctx, "u-2")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestPrincipalsDelete(t *testing.T) {
	p, mr := newTestPrincipals(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, sampleEntry()))
	require.NoError(t, p.Delete(ctx, "u-1", "", "missing"))
	assert.False(t, mr.Exists("test:principal:u-1"))
	require.NoError(t, p.Delete(ctx))
}

func TestPrincipalsUnavailable(t *testing.T) {
	p, mr := newTestPrincipals(t, time.Minute)
	mr.Close()

	_, err := p.Get(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}
