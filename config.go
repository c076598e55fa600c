package spellauth

import (
	"errors"
	"time"

	"github.com/MrEthical07/spellauth/password"
	"github.com/MrEthical07/spellauth/permission"
	"github.com/MrEthical07/spellauth/token"
)

const (
	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"
)

// Config holds every tunable of an Engine. Build copies it; later changes to
// the caller's value have no effect.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	Account  AccountConfig
	Cache    CacheConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig controls purpose-bound token issuance.
type TokenConfig struct {
	// DefaultTTL applies when a caller passes a non-positive ttl.
	DefaultTTL time.Duration
}

// PasswordConfig selects the hashing algorithm, its cost parameters and the
// plaintext policy.
type PasswordConfig struct {
	Algorithm   string
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	BcryptCost  int

	// UpgradeOnLogin rehashes a credential after a successful Authenticate
	// when it was produced by a fallback algorithm or weaker parameters.
	UpgradeOnLogin bool

	MinLength int
	MaxLength int
	Symbols   string
}

type AccountConfig struct {
	DefaultRole string
}

// CacheConfig controls the Redis principal cache consulted by LoadUser.
// The cache is only active when a Redis client is supplied to the Builder.
type CacheConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

// AuditConfig controls audit delivery. Metadata keys naming passwords,
// hashes, tokens or secrets are always masked; RedactKeys adds more.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Events     []string
	RedactKeys []string
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration matching the stock policy: argon2id
// hashing, 6 to 22 character passwords, one hour tokens and the User default
// role.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		Token: TokenConfig{
			DefaultTTL: token.DefaultTTL,
		},
		Password: PasswordConfig{
			Algorithm:      HashArgon2id,
			Memory:         argon.Memory,
			Time:           argon.Time,
			Parallelism:    argon.Parallelism,
			SaltLength:     argon.SaltLength,
			KeyLength:      argon.KeyLength,
			BcryptCost:     12,
			UpgradeOnLogin: true,
			MinLength:      password.DefaultMinLength,
			MaxLength:      password.DefaultMaxLength,
			Symbols:        password.DefaultSymbols,
		},
		Account: AccountConfig{
			DefaultRole: permission.RoleUser,
		},
		Cache: CacheConfig{
			Enabled:     true,
			RedisPrefix: "spellauth:principal",
			TTL:         10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	cfg.Audit.Events = append([]string(nil), cfg.Audit.Events...)
	cfg.Audit.RedactKeys = append([]string(nil), cfg.Audit.RedactKeys...)
	return cfg
}

func (c Config) passwordPolicy() password.Policy {
	return password.Policy{
		MinLength: c.Password.MinLength,
		MaxLength: c.Password.MaxLength,
		Symbols:   c.Password.Symbols,
	}
}

func (c Config) argon2Config() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: password.DefaultMaxPasswordBytes,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Token.DefaultTTL <= 0 {
		return errors.New("Token DefaultTTL must be > 0")
	}

	switch c.Password.Algorithm {
	case HashArgon2id, HashBcrypt:
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}

	// Both hashers are built: one hashes, the other verifies legacy hashes.
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.SaltLength > 64 {
		return errors.New("Password SaltLength must be between 16 and 64")
	}
	if c.Password.KeyLength < 16 || c.Password.KeyLength > 64 {
		return errors.New("Password KeyLength must be between 16 and 64")
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}

	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	if c.Account.DefaultRole != "" {
		if err := permission.ValidateRoleName(c.Account.DefaultRole); err != nil {
			return err
		}
	}

	if c.Cache.Enabled {
		if c.Cache.RedisPrefix == "" {
			return errors.New("Cache RedisPrefix is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return errors.New("Cache TTL must be > 0 when cache is enabled")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
