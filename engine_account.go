package spellauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/spellauth/store"
)

// CreateUser validates in, hashes its password, attaches the requested role
// (or the configured default) and persists the account.
//
// Duplicate email or username fails with ErrConstraintViolation and leaves
// the existing account untouched.
func (e *Engine) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := e.validate.StructCtx(ctx, in); err != nil {
		err = validationError(err)
		e.metricInc(MetricUserCreateInvalid)
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "invalid_input"}
		})
		return nil, err
	}

	roleName := in.Role
	if roleName == "" {
		roleName = e.config.Account.DefaultRole
	}
	var role *store.RoleRecord
	if roleName != "" {
		rec, err := e.roles.GetRoleByName(ctx, roleName)
		if errors.Is(err, store.ErrRoleNotFound) {
			err = fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
			e.emitAudit(ctx, auditEventUserCreateFailure, false, "", err, func() map[string]string {
				return map[string]string{"reason": "role_missing", "role": roleName}
			})
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("%w: lookup role %q: %w", ErrRoleBackendUnavailable, roleName, err)
		}
		role = &rec
	}

	now := e.now().UTC()
	u := userFromRecord(store.UserRecord{
		ID:       uuid.NewString(),
		Email:    in.Email,
		Username: in.Username,
		AboutMe:  in.AboutMe,
		Avatar:   in.Avatar,
		Since:    now,
		LastSeen: now,
	}, role)

	if err := e.SetPassword(u, in.Password); err != nil {
		e.metricInc(MetricUserCreateInvalid)
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "password_format"}
		})
		return nil, err
	}

	if err := e.users.CreateUser(ctx, u.record()); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			e.metricInc(MetricUserCreateDuplicate)
		}
		e.emitAudit(ctx, auditEventUserCreateFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "store_rejected"}
		})
		return nil, fmt.Errorf("create user: %w", err)
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, u.ID, nil, func() map[string]string {
		return map[string]string{"role": u.RoleName()}
	})
	e.logger.InfoContext(ctx, "user created", "user", u)
	return u, nil
}

// UpdateProfile replaces the user-editable profile fields and persists them.
func (e *Engine) UpdateProfile(ctx context.Context, u *User, p ProfileUpdate) error {
	if u == nil {
		return ErrInvalidUser
	}
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if err := e.validate.StructCtx(ctx, p); err != nil {
		return validationError(err)
	}

	next := u.record()
	next.AboutMe = p.AboutMe
	next.Avatar = p.Avatar
	if err := e.users.UpdateUser(ctx, next); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	u.AboutMe, u.Avatar = p.AboutMe, p.Avatar
	e.evictPrincipal(ctx, u.ID)
	e.emitAudit(ctx, auditEventProfileUpdated, true, u.ID, nil, nil)
	return nil
}

// AssignRole moves u to the named role.
func (e *Engine) AssignRole(ctx context.Context, u *User, roleName string) error {
	if u == nil {
		return ErrInvalidUser
	}
	if e == nil || e.users == nil || e.roles == nil {
		return ErrEngineNotReady
	}

	rec, err := e.roles.GetRoleByName(ctx, roleName)
	if errors.Is(err, store.ErrRoleNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
	}
	if err != nil {
		return fmt.Errorf("%w: lookup role %q: %w", ErrRoleBackendUnavailable, roleName, err)
	}

	next := u.record()
	next.RoleID = rec.ID
	if err := e.users.UpdateUser(ctx, next); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	previous := u.RoleName()
	u.Role = &Role{ID: rec.ID, Name: rec.Name, Permissions: rec.Permissions}
	e.evictPrincipal(ctx, u.ID)
	e.metricInc(MetricRoleAssigned)
	e.emitAudit(ctx, auditEventRoleAssigned, true, u.ID, nil, func() map[string]string {
		return map[string]string{"from": previous, "to": rec.Name}
	})
	return nil
}

// Ping stamps u's last-seen time with the current clock and persists it.
func (e *Engine) Ping(ctx context.Context, u *User) error {
	if u == nil {
		return ErrInvalidUser
	}
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	now := e.now().UTC()
	if err := e.users.TouchLastSeen(ctx, u.ID, now); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	u.LastSeen = now
	e.evictPrincipal(ctx, u.ID)
	e.metricInc(MetricPing)
	return nil
}

// DeleteUser removes the account and every follow edge that references it.
func (e *Engine) DeleteUser(ctx context.Context, id string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if id == "" {
		return ErrInvalidUser
	}
	if err := e.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	e.evictPrincipal(ctx, id)
	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, auditEventUserDeleted, true, id, nil, nil)
	e.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}
