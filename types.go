package spellauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/spellauth/permission"
)

// Role is a named permission mask as loaded from the role store.
type Role struct {
	ID          string
	Name        string
	Permissions permission.Mask
}

// User is an account aggregate. The password hash is held privately and is
// only reachable through the Engine's credential operations.
type User struct {
	ID        string
	Email     string
	Username  string
	Confirmed bool
	AboutMe   string
	Avatar    string
	Since     time.Time
	LastSeen  time.Time
	Role      *Role

	passwordHash string
}

// NewUser is the input to Engine.CreateUser. An empty Role selects the
// configured default role.
type NewUser struct {
	Email    string `validate:"required,email,max=64"`
	Username string `validate:"required,max=42,username"`
	Password string
	AboutMe  string `validate:"max=120"`
	Avatar   string `validate:"max=120"`
	Role     string
}

// ProfileUpdate carries the user-editable profile fields.
type ProfileUpdate struct {
	AboutMe string `validate:"max=120"`
	Avatar  string `validate:"max=120"`
}

// UserLoader resolves a session-stored identifier into a User. A missing
// user yields (nil, nil).
type UserLoader func(ctx context.Context, id string) (*User, error)

// ReconcileReport lists the role names touched by Engine.ReconcileRoles.
type ReconcileReport struct {
	Created   []string
	Updated   []string
	Unchanged []string
}

// Changed reports whether reconciliation wrote anything.
func (r ReconcileReport) Changed() bool {
	return len(r.Created) > 0 || len(r.Updated) > 0
}

// Can reports whether the user's role grants every bit of capability.
// A user without a role can do nothing.
func (u *User) Can(capability permission.Mask) bool {
	if u == nil || u.Role == nil {
		return false
	}
	return u.Role.Permissions.Has(capability)
}

// IsAdministrator reports whether the user holds the administer bit.
func (u *User) IsAdministrator() bool {
	return u.Can(permission.Administer)
}

// HasCredential reports whether a password hash is present.
func (u *User) HasCredential() bool {
	return u != nil && u.passwordHash != ""
}

// RoleName returns the role name or "" for a role-less user.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// LogValue keeps credential material and contact details out of logs.
func (u *User) LogValue() slog.Value {
	if u == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("id", u.ID),
		slog.String("username", u.Username),
		slog.String("role", u.RoleName()),
	)
}
