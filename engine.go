package spellauth

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrEthical07/spellauth/internal/audit"
	"github.com/MrEthical07/spellauth/internal/cache"
	"github.com/MrEthical07/spellauth/password"
	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
	"github.com/MrEthical07/spellauth/token"
)

// Engine owns account, credential, token and role operations over the
// configured stores. It is safe for concurrent use once built.
type Engine struct {
	config   Config
	users    store.UserStore
	roles    store.RoleStore
	follows  store.FollowStore
	roleDefs *permission.RoleManager
	policy   password.Policy
	hasher   password.Hasher
	signer   *token.Signer
	cache    *cache.Principals
	validate *validator.Validate
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Roles returns the canonical role table.
func (e *Engine) Roles() *permission.RoleManager {
	if e == nil {
		return nil
	}
	return e.roleDefs
}

// HasPermission reports whether u's role grants every bit of capability.
// A zero capability is never granted.
func (e *Engine) HasPermission(u *User, capability permission.Mask) bool {
	return u.Can(capability)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}
