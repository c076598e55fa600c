package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/spellauth/permission"
)

var (
	ErrConstraintViolation = errors.New("unique constraint violation")
	ErrUserNotFound        = errors.New("user not found")
	ErrRoleNotFound        = errors.New("role not found")
)

// UserRecord is the persisted form of an account.
// RoleID is empty when the account has no role.
type UserRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Confirmed    bool      `json:"confirmed"`
	AboutMe      string    `json:"about_me,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Since        time.Time `json:"since"`
	LastSeen     time.Time `json:"last_seen"`
	RoleID       string    `json:"role_id,omitempty"`
}

// RoleRecord is the persisted form of a role.
type RoleRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Permissions permission.Mask `json:"permissions"`
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, rec UserRecord) error
	GetUserByID(ctx context.Context, id string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	// UpdateUser rewrites every column except the password hash and since.
	UpdateUser(ctx context.Context, rec UserRecord) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// RoleStore persists roles.
type RoleStore interface {
	GetRoleByID(ctx context.Context, id string) (RoleRecord, error)
	GetRoleByName(ctx context.Context, name string) (RoleRecord, error)
	CreateRole(ctx context.Context, rec RoleRecord) error
	UpdateRolePermissions(ctx context.Context, id string, mask permission.Mask) error
	ListRoles(ctx context.Context) ([]RoleRecord, error)
}

// FollowStore persists directed follow edges between accounts.
// Follow is idempotent; Unfollow of a missing edge is not an error.
type FollowStore interface {
	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
}

// Backend bundles the three stores, as provided by every implementation.
type Backend interface {
	UserStore
	RoleStore
	FollowStore
}
