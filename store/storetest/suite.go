// Package storetest holds the behavioural suite every store backend must
// pass. Backends call Run from their own tests with a factory that returns an
// empty backend.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Backend

// Run executes the contract suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("UserRoundTrip", func(t *testing.T) { testUserRoundTrip(t, newBackend(t)) })
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, newBackend(t)) })
	t.Run("UserUpdates", func(t *testing.T) { testUserUpdates(t, newBackend(t)) })
	t.Run("UserNotFound", func(t *testing.T) { testUserNotFound(t, newBackend(t)) })
	t.Run("RoleLifecycle", func(t *testing.T) { testRoleLifecycle(t, newBackend(t)) })
	t.Run("ConcurrentRoleCreate", func(t *testing.T) { testConcurrentRoleCreate(t, newBackend(t)) })
	t.Run("FollowGraph", func(t *testing.T) { testFollowGraph(t, newBackend(t)) })
	t.Run("DeleteUserRemovesEdges", func(t *testing.T) { testDeleteUserRemovesEdges(t, newBackend(t)) })
}

func newRole(t *testing.T, b store.Backend, name string, mask permission.Mask) store.RoleRecord {
	t.Helper()
	rec := store.RoleRecord{ID: uuid.NewString(), Name: name, Permissions: mask}
	require.NoError(t, b.CreateRole(context.Background(), rec))
	return rec
}

// NewUserRecord returns a valid record with a fresh id; ts is truncated to
// microseconds so SQL backends round-trip it exactly.
func NewUserRecord(username, email, roleID string) store.UserRecord {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	return store.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		AboutMe:      "hello",
		Since:        ts,
		LastSeen:     ts,
		RoleID:       roleID,
	}
}

func testUserRoundTrip(t *testing.T, b store.Backend) {
	ctx := context.Background()
	role := newRole(t, b, "User", 0x07)

	rec := NewUserRecord("ana", "ana@example.com", role.ID)
	require.NoError(t, b.CreateUser(ctx, rec))

	got, err := b.GetUserByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Email, got.Email)
	assert.Equal(t, rec.Username, got.Username)
	assert.Equal(t, rec.PasswordHash, got.PasswordHash)
	assert.Equal(t, rec.RoleID, got.RoleID)
	assert.True(t, rec.Since.Equal(got.Since), "since %v != %v", rec.Since, got.Since)
	assert.False(t, got.Confirmed)

	byEmail, err := b.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byEmail.ID)

	byName, err := b.GetUserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byName.ID)

	roleless := NewUserRecord("bo", "bo@example.com", "")
	require.NoError(t, b.CreateUser(ctx, roleless))
	got, err = b.GetUserByID(ctx, roleless.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RoleID)
}

func testUserUniqueness(t *testing.T, b store.Backend) {
	ctx := context.Background()

	first := NewUserRecord("ana", "ana@example.com", "")
	require.NoError(t, b.CreateUser(ctx, first))

	dupEmail := NewUserRecord("other", "ana@example.com", "")
	assert.ErrorIs(t, b.CreateUser(ctx, dupEmail), store.ErrConstraintViolation)

	dupName := NewUserRecord("ana", "other@example.com", "")
	assert.ErrorIs(t, b.CreateUser(ctx, dupName), store.ErrConstraintViolation)

	got, err := b.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email, "existing record must be untouched")

	second := NewUserRecord("cy", "cy@example.com", "")
	require.NoError(t, b.CreateUser(ctx, second))
	second.Email = "ana@example.com"
	assert.ErrorIs(t, b.UpdateUser(ctx, second), store.ErrConstraintViolation)
}

func testUserUpdates(t *testing.T, b store.Backend) {
	ctx := context.Background()
	role := newRole(t, b, "Member", 0x0F)

	rec := NewUserRecord("ana", "ana@example.com", "")
	require.NoError(t, b.CreateUser(ctx, rec))

	rec.Email = "ana@new.example.com"
	rec.Confirmed = true
	rec.AboutMe = "updated"
	rec.RoleID = role.ID
	rec.PasswordHash = "must-not-be-written"
	require.NoError(t, b.UpdateUser(ctx, rec))

	got, err := b.GetUserByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@new.example.com", got.Email)
	assert.True(t, got.Confirmed)
	assert.Equal(t, "updated", got.AboutMe)
	assert.Equal(t, role.ID, got.RoleID)
	assert.NotEqual(t, "must-not-be-written", got.PasswordHash)

	_, err = b.GetUserByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	require.NoError(t, b.UpdatePasswordHash(ctx, rec.ID, "$2a$10$new"))
	seen := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, b.TouchLastSeen(ctx, rec.ID, seen))

	got, err = b.GetUserByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$new", got.PasswordHash)
	assert.True(t, seen.Equal(got.LastSeen))
}

func testUserNotFound(t *testing.T, b store.Backend) {
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := b.GetUserByID(ctx, missing)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = b.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = b.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.ErrorIs(t, b.UpdatePasswordHash(ctx, missing, "x"), store.ErrUserNotFound)
	assert.ErrorIs(t, b.TouchLastSeen(ctx, missing, time.Now()), store.ErrUserNotFound)
	assert.ErrorIs(t, b.DeleteUser(ctx, missing), store.ErrUserNotFound)

	rec := NewUserRecord("ghost", "ghost@example.com", "")
	rec.ID = missing
	assert.ErrorIs(t, b.UpdateUser(ctx, rec), store.ErrUserNotFound)
}

func testRoleLifecycle(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.GetRoleByName(ctx, "User")
	assert.ErrorIs(t, err, store.ErrRoleNotFound)

	rec := newRole(t, b, "User", 0x07)
	dup := store.RoleRecord{ID: uuid.NewString(), Name: "User", Permissions: 0x01}
	assert.ErrorIs(t, b.CreateRole(ctx, dup), store.ErrConstraintViolation)

	require.NoError(t, b.UpdateRolePermissions(ctx, rec.ID, 0x0F))
	got, err := b.GetRoleByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, permission.Mask(0x0F), got.Permissions)
	assert.Equal(t, "User", got.Name)

	newRole(t, b, "Administrator", permission.All)
	roles, err := b.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "Administrator", roles[0].Name)
	assert.Equal(t, permission.All, roles[0].Permissions)

	assert.ErrorIs(t, b.UpdateRolePermissions(ctx, uuid.NewString(), 0x01), store.ErrRoleNotFound)
	_, err = b.GetRoleByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrRoleNotFound)
}

func testConcurrentRoleCreate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := b.CreateRole(ctx, store.RoleRecord{ID: uuid.NewString(), Name: "Member", Permissions: 0x0F})
			switch {
			case err == nil:
				created.Add(1)
			default:
				assert.ErrorIs(t, err, store.ErrConstraintViolation)
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func testFollowGraph(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewUserRecord("ana", "ana@example.com", "")
	c := NewUserRecord("cy", "cy@example.com", "")
	d := NewUserRecord("di", "di@example.com", "")
	for _, rec := range []store.UserRecord{a, c, d} {
		require.NoError(t, b.CreateUser(ctx, rec))
	}

	require.NoError(t, b.Follow(ctx, a.ID, c.ID))
	require.NoError(t, b.Follow(ctx, a.ID, c.ID))
	require.NoError(t, b.Follow(ctx, d.ID, c.ID))

	ok, err := b.IsFollowing(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.IsFollowing(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := b.Followers(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, d.ID}, followers)

	following, err := b.Following(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, following)

	require.NoError(t, b.Unfollow(ctx, a.ID, c.ID))
	require.NoError(t, b.Unfollow(ctx, a.ID, c.ID))
	ok, err = b.IsFollowing(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteUserRemovesEdges(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewUserRecord("ana", "ana@example.com", "")
	c := NewUserRecord("cy", "cy@example.com", "")
	require.NoError(t, b.CreateUser(ctx, a))
	require.NoError(t, b.CreateUser(ctx, c))
	require.NoError(t, b.Follow(ctx, a.ID, c.ID))
	require.NoError(t, b.Follow(ctx, c.ID, a.ID))

	require.NoError(t, b.DeleteUser(ctx, a.ID))

	followers, err := b.Followers(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
	following, err := b.Following(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	_, err = b.GetUserByID(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	again := NewUserRecord("ana", "ana@example.com", "")
	require.NoError(t, b.CreateUser(ctx, again), "unique keys must be released on delete")
}
