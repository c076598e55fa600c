package spellauth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/spellauth/internal/audit"
	"github.com/MrEthical07/spellauth/internal/cache"
	"github.com/MrEthical07/spellauth/password"
	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/store"
	"github.com/MrEthical07/spellauth/token"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users   store.UserStore
	roles   store.RoleStore
	follows store.FollowStore

	roleDefs  *permission.RoleManager
	secret    token.SecretSource
	hasher    password.Hasher
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStores wires one backend as user, role and follow store.
func (b *Builder) WithStores(backend store.Backend) *Builder {
	b.users = backend
	b.roles = backend
	b.follows = backend
	return b
}

func (b *Builder) WithUserStore(s store.UserStore) *Builder {
	b.users = s
	return b
}

func (b *Builder) WithRoleStore(s store.RoleStore) *Builder {
	b.roles = s
	return b
}

func (b *Builder) WithFollowStore(s store.FollowStore) *Builder {
	b.follows = s
	return b
}

// WithRedis enables the principal cache when Cache.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoles replaces the canonical role table used by ReconcileRoles.
func (b *Builder) WithRoles(roles *permission.RoleManager) *Builder {
	b.roleDefs = roles
	return b
}

func (b *Builder) WithSecretSource(src token.SecretSource) *Builder {
	b.secret = src
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token expiry, timestamps and audit events.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.roles == nil {
		return nil, fmt.Errorf("%w: role store required", ErrRoleBackendUnavailable)
	}
	if b.secret == nil {
		return nil, errors.New("signing secret source required")
	}

	roleDefs := b.roleDefs
	if roleDefs == nil {
		roleDefs = permission.DefaultRoles()
	}
	roleDefs.Freeze()

	if cfg.Account.DefaultRole != "" {
		if _, ok := roleDefs.GetMask(cfg.Account.DefaultRole); !ok {
			return nil, errors.New("Account DefaultRole does not exist in role table")
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := newHasher(cfg)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	signer, err := token.NewSigner(token.Config{
		Secret:     b.secret,
		Now:        now,
		DefaultTTL: cfg.Token.DefaultTTL,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		users:    b.users,
		roles:    b.roles,
		follows:  b.follows,
		roleDefs: roleDefs,
		policy:   cfg.passwordPolicy(),
		hasher:   hasher,
		signer:   signer,
		validate: newValidator(),
		logger:   logger,
		now:      now,
	}

	if cfg.Cache.Enabled && b.redis != nil {
		engine.cache = cache.NewPrincipals(b.redis, cfg.Cache.RedisPrefix, cfg.Cache.TTL)
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Events:     cfg.Audit.Events,
		RedactKeys: cfg.Audit.RedactKeys,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

// newHasher hashes with the configured algorithm and keeps the other one as a
// verify-only fallback so stored hashes survive an algorithm switch.
func newHasher(cfg Config) (password.Hasher, error) {
	argon, err := password.NewArgon2(cfg.argon2Config())
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}

	if cfg.Password.Algorithm == HashBcrypt {
		return password.NewMulti(bc, argon), nil
	}
	return password.NewMulti(argon, bc), nil
}
