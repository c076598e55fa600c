package spellauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/spellauth/password"
	"github.com/MrEthical07/spellauth/store"
)

// SetPassword validates plaintext against the password policy and replaces
// u's credential hash in memory. On ErrInvalidCredentialFormat the existing
// hash is left untouched. Nothing is persisted; see SavePassword.
func (e *Engine) SetPassword(u *User, plaintext string) error {
	if u == nil {
		return ErrInvalidUser
	}
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if err := e.policy.Validate(plaintext); err != nil {
		e.metricInc(MetricPasswordFormatRejected)
		return err
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.passwordHash = hash
	e.metricInc(MetricPasswordSet)
	return nil
}

// SavePassword is SetPassword followed by persisting the new hash. If the
// write fails u keeps its previous hash.
func (e *Engine) SavePassword(ctx context.Context, u *User, plaintext string) error {
	if u == nil {
		return ErrInvalidUser
	}
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	previous := u.passwordHash
	if err := e.SetPassword(u, plaintext); err != nil {
		e.emitAudit(ctx, auditEventPasswordRejected, false, u.ID, err, nil)
		return err
	}

	if err := e.users.UpdatePasswordHash(ctx, u.ID, u.passwordHash); err != nil {
		u.passwordHash = previous
		return fmt.Errorf("save password: %w", err)
	}

	e.evictPrincipal(ctx, u.ID)
	e.emitAudit(ctx, auditEventPasswordSet, true, u.ID, nil, nil)
	return nil
}

// VerifyPassword reports whether plaintext matches u's stored hash. A user
// without a credential never verifies.
func (e *Engine) VerifyPassword(u *User, plaintext string) bool {
	if e == nil || e.hasher == nil || !u.HasCredential() {
		return false
	}
	ok := e.hasher.Verify(plaintext, u.passwordHash)
	if ok {
		e.metricInc(MetricPasswordVerifySuccess)
	} else {
		e.metricInc(MetricPasswordVerifyFailure)
	}
	return ok
}

// Authenticate resolves identifier (an email address when it contains '@',
// otherwise a username) and verifies plaintext against it. Every failure
// mode is reported as ErrInvalidCredentials, except backend errors.
func (e *Engine) Authenticate(ctx context.Context, identifier, plaintext string) (*User, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	rec, err := e.lookupIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrUserNotFound) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "unknown_identifier"}
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	u, err := e.resolveUser(ctx, rec)
	if err != nil {
		return nil, err
	}

	if !e.VerifyPassword(u, plaintext) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, u, plaintext)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, u.ID, nil, nil)
	return u, nil
}

func (e *Engine) lookupIdentifier(ctx context.Context, identifier string) (store.UserRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	if strings.Contains(identifier, "@") {
		return e.users.GetUserByEmail(ctx, identifier)
	}
	return e.users.GetUserByUsername(ctx, identifier)
}

// upgradeHash rehashes a verified credential produced by a fallback algorithm
// or weaker parameters. Failures are logged and never fail the login.
func (e *Engine) upgradeHash(ctx context.Context, u *User, plaintext string) {
	up, ok := e.hasher.(password.Upgrader)
	if !ok {
		return
	}
	needs, err := up.NeedsUpgrade(u.passwordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "user", u, "error", err)
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "password rehash not persisted", "user", u, "error", err)
		return
	}

	u.passwordHash = hash
	e.evictPrincipal(ctx, u.ID)
	e.metricInc(MetricPasswordUpgraded)
	e.emitAudit(ctx, auditEventPasswordUpgraded, true, u.ID, nil, nil)
}
