package spellauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/spellauth/internal/cache"
	"github.com/MrEthical07/spellauth/store"
)

// LoadUser resolves a session-stored user identifier. An empty or unknown id
// yields (nil, nil); only backend failures are returned as errors.
//
// When a Redis client was supplied and the cache is enabled, resolved
// principals are served from and written to the principal cache. Cache
// failures fall back to the store.
func (e *Engine) LoadUser(ctx context.Context, id string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if id == "" {
		return nil, nil
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metricObserve(MetricLoadUserLatency, time.Since(start))
		}()
	}

	if e.cache != nil {
		entry, err := e.cache.Get(ctx, id)
		switch {
		case err == nil:
			e.metricInc(MetricPrincipalCacheHit)
			return userFromRecord(entry.User, entry.Role), nil
		case errors.Is(err, cache.ErrMiss):
			e.metricInc(MetricPrincipalCacheMiss)
		default:
			e.metricInc(MetricPrincipalCacheError)
			e.logger.WarnContext(ctx, "principal cache read failed", "user_id", id, "error", err)
		}
	}

	rec, err := e.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrUserNotFound) {
		e.metricInc(MetricPrincipalNotFound)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}

	u, err := e.resolveUser(ctx, rec)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, &cache.Entry{User: rec, Role: u.roleRecord()}); err != nil {
			e.metricInc(MetricPrincipalCacheError)
			e.logger.WarnContext(ctx, "principal cache write failed", "user_id", id, "error", err)
		}
	}
	return u, nil
}

// UserLoader returns LoadUser bound to e, for session middleware.
func (e *Engine) UserLoader() UserLoader {
	return e.LoadUser
}

// resolveUser attaches the role referenced by rec. A dangling role reference
// resolves to a role-less user.
func (e *Engine) resolveUser(ctx context.Context, rec store.UserRecord) (*User, error) {
	if rec.RoleID == "" || e.roles == nil {
		return userFromRecord(rec, nil), nil
	}

	role, err := e.roles.GetRoleByID(ctx, rec.RoleID)
	if errors.Is(err, store.ErrRoleNotFound) {
		e.logger.WarnContext(ctx, "user references missing role", "user_id", rec.ID, "role_id", rec.RoleID)
		return userFromRecord(rec, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load role %s: %w", rec.RoleID, err)
	}
	return userFromRecord(rec, &role), nil
}

func (e *Engine) evictPrincipal(ctx context.Context, ids ...string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, ids...); err != nil {
		e.metricInc(MetricPrincipalCacheError)
		e.logger.WarnContext(ctx, "principal cache eviction failed", "user_ids", ids, "error", err)
	}
}
