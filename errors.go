package spellauth

import (
	"errors"

	"github.com/MrEthical07/spellauth/password"
	"github.com/MrEthical07/spellauth/store"
)

var (
	// ErrInvalidCredentialFormat is returned when a plaintext password does
	// not satisfy the configured policy.
	ErrInvalidCredentialFormat = password.ErrInvalidFormat
	// ErrConstraintViolation is returned when a write would duplicate a
	// unique email, username or role name.
	ErrConstraintViolation = store.ErrConstraintViolation
	ErrUserNotFound        = store.ErrUserNotFound
	ErrRoleNotFound        = store.ErrRoleNotFound

	ErrInvalidUser            = errors.New("invalid user")
	ErrUnknownRole            = errors.New("unknown role")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrRoleBackendUnavailable = errors.New("role backend unavailable")
	ErrFollowBackendMissing   = errors.New("follow backend not configured")
	ErrSelfFollow             = errors.New("user cannot follow itself")
	ErrEngineNotReady         = errors.New("engine not ready")
)
