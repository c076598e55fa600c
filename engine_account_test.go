package spellauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/spellauth/permission"
)

func TestCreateUserAssignsDefaultRole(t *testing.T) {
	env := newTestEnv(t, testConfig())

	u := env.createUser(t, "alice")

	if _, err := uuid.Parse(u.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", u.ID)
	}
	if u.RoleName() != permission.RoleUser {
		t.Fatalf("expected role %s, got %q", permission.RoleUser, u.RoleName())
	}
	if !u.Can(permission.Follow|permission.Comment|permission.Post) || u.Can(permission.WriteArticle) {
		t.Fatalf("unexpected permissions for default role: %#x", u.Role.Permissions)
	}
	if u.IsAdministrator() {
		t.Fatal("default role must not administer")
	}
	if !u.Since.Equal(env.clock.Now()) || !u.LastSeen.Equal(env.clock.Now()) {
		t.Fatalf("expected since/last_seen at clock time, got %v / %v", u.Since, u.LastSeen)
	}
	if u.Confirmed {
		t.Fatal("new users start unconfirmed")
	}

	rec, err := env.store.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if rec.PasswordHash == "" || rec.PasswordHash == testPassword {
		t.Fatal("expected stored password to be hashed")
	}
	if env.engine.MetricsSnapshot().Counters[MetricUserCreated] != 1 {
		t.Fatal("expected user created metric")
	}
}

func TestCreateUserNamedRole(t *testing.T) {
	env := newTestEnv(t, testConfig())

	u, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    "root@example.com",
		Username: "root",
		Password: testPassword,
		Role:     permission.RoleAdministrator,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if !u.IsAdministrator() || !env.engine.HasPermission(u, permission.All) {
		t.Fatal("expected administrator to hold every bit")
	}
}

func TestCreateUserRejectsInvalidFields(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name string
		in   NewUser
	}{
		{"bad email", NewUser{Email: "not-an-email", Username: "bob", Password: testPassword}},
		{"empty email", NewUser{Email: "", Username: "bob", Password: testPassword}},
		{"username leading digit", NewUser{Email: "bob@example.com", Username: "1bob", Password: testPassword}},
		{"username dash", NewUser{Email: "bob@example.com", Username: "bo-b", Password: testPassword}},
		{"username too long", NewUser{Email: "bob@example.com", Username: strings.Repeat("b", 43), Password: testPassword}},
		{"empty username", NewUser{Email: "bob@example.com", Username: "  ", Password: testPassword}},
		{"about me too long", NewUser{Email: "bob@example.com", Username: "bob", Password: testPassword, AboutMe: strings.Repeat("x", 121)}},
		{"avatar too long", NewUser{Email: "bob@example.com", Username: "bob", Password: testPassword, Avatar: strings.Repeat("x", 121)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.CreateUser(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("expected ErrInvalidUser, got %v", err)
			}
		})
	}

	if got := env.engine.MetricsSnapshot().Counters[MetricUserCreateInvalid]; got != uint64(len(tests)) {
		t.Fatalf("expected %d invalid metrics, got %d", len(tests), got)
	}
}

func TestCreateUserAcceptsBoundaryUsername(t *testing.T) {
	env := newTestEnv(t, testConfig())

	name := "_" + strings.Repeat("a", 41)
	if _, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    "edge@example.com",
		Username: name,
		Password: testPassword,
	}); err != nil {
		t.Fatalf("expected 42 character username to be accepted: %v", err)
	}
}

func TestCreateUserRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, pw := range []string{"short", "has space 1", strings.Repeat("a", 23), "tab\tsecret"} {
		_, err := env.engine.CreateUser(context.Background(), NewUser{
			Email:    "carol@example.com",
			Username: "carol",
			Password: pw,
		})
		if !errors.Is(err, ErrInvalidCredentialFormat) {
			t.Fatalf("password %q: expected ErrInvalidCredentialFormat, got %v", pw, err)
		}
	}
	if _, err := env.store.GetUserByUsername(context.Background(), "carol"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("rejected user must not be stored, got %v", err)
	}
}

func TestCreateUserDuplicateRejected(t *testing.T) {
	env := newTestEnv(t, testConfig())
	original := env.createUser(t, "alice")

	_, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    "ALICE@example.com",
		Username: "alice2",
		Password: testPassword,
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for duplicate email, got %v", err)
	}

	_, err = env.engine.CreateUser(context.Background(), NewUser{
		Email:    "other@example.com",
		Username: "alice",
		Password: testPassword,
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for duplicate username, got %v", err)
	}

	rec, err := env.store.GetUserByID(context.Background(), original.ID)
	if err != nil || rec.Email != "alice@example.com" {
		t.Fatalf("existing account changed: %+v err=%v", rec, err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricUserCreateDuplicate]; got != 2 {
		t.Fatalf("expected 2 duplicate metrics, got %d", got)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    "dave@example.com",
		Username: "dave",
		Password: testPassword,
		Role:     "Moderator",
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestCreateUserBeforeReconcileFails(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if err := env.store.DeleteRole(context.Background(), mustRoleID(t, env, permission.RoleUser)); err != nil {
		t.Fatalf("DeleteRole failed: %v", err)
	}

	_, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    "erin@example.com",
		Username: "erin",
		Password: testPassword,
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole without the default role, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, testConfig())
	u := env.createUser(t, "alice")

	if err := env.engine.UpdateProfile(context.Background(), u, ProfileUpdate{AboutMe: "hi", Avatar: "https://img/a.png"}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	loaded, err := env.engine.LoadUser(context.Background(), u.ID)
	if err != nil || loaded == nil {
		t.Fatalf("LoadUser failed: %v", err)
	}
	if loaded.AboutMe != "hi" || loaded.Avatar != "https://img/a.png" {
		t.Fatalf("profile not persisted: %+v", loaded)
	}
	if !env.engine.VerifyPassword(loaded, testPassword) {
		t.Fatal("profile update must keep the credential")
	}

	err = env.engine.UpdateProfile(context.Background(), u, ProfileUpdate{AboutMe: strings.Repeat("x", 121)})
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	if u.AboutMe != "hi" {
		t.Fatal("rejected update must not change the user")
	}
}

func TestAssignRole(t *testing.T) {
	env := newTestEnv(t, testConfig())
	u := env.createUser(t, "alice")

	if err := env.engine.AssignRole(context.Background(), u, permission.RoleMember); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if !u.Can(permission.WriteArticle) {
		t.Fatal("expected member to write articles")
	}

	loaded, _ := env.engine.LoadUser(context.Background(), u.ID)
	if loaded.RoleName() != permission.RoleMember {
		t.Fatalf("expected persisted role Member, got %q", loaded.RoleName())
	}

	if err := env.engine.AssignRole(context.Background(), u, "Ghost"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestPingUpdatesLastSeen(t *testing.T) {
	env := newTestEnv(t, testConfig())
	u := env.createUser(t, "alice")
	since := u.Since

	env.clock.Advance(90 * time.Minute)
	if err := env.engine.Ping(context.Background(), u); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !u.LastSeen.Equal(env.clock.Now()) {
		t.Fatalf("expected last_seen %v, got %v", env.clock.Now(), u.LastSeen)
	}

	loaded, _ := env.engine.LoadUser(context.Background(), u.ID)
	if !loaded.LastSeen.Equal(env.clock.Now()) || !loaded.Since.Equal(since) {
		t.Fatalf("ping persisted wrong timestamps: since=%v last_seen=%v", loaded.Since, loaded.LastSeen)
	}

	ghost := &User{ID: "ghost"}
	if err := env.engine.Ping(context.Background(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeleteUserRemovesFollowEdges(t *testing.T) {
	env := newTestEnv(t, testConfig())
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	ctx := context.Background()

	if err := env.engine.Follow(ctx, alice, bob); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if err := env.engine.Follow(ctx, bob, alice); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	if err := env.engine.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if u, err := env.engine.LoadUser(ctx, alice.ID); err != nil || u != nil {
		t.Fatalf("expected deleted user to load as nil, got %v err=%v", u, err)
	}
	followers, _ := env.engine.Followers(ctx, bob)
	following, _ := env.engine.Following(ctx, bob)
	if len(followers) != 0 || len(following) != 0 {
		t.Fatalf("expected edges removed, followers=%v following=%v", followers, following)
	}

	if err := env.engine.DeleteUser(ctx, alice.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func mustRoleID(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	rec, err := env.store.GetRoleByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetRoleByName(%s) failed: %v", name, err)
	}
	return rec.ID
}
