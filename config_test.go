package spellauth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Token.DefaultTTL != time.Hour {
		t.Fatalf("expected one hour default ttl, got %v", cfg.Token.DefaultTTL)
	}
	if cfg.Password.MinLength != 6 || cfg.Password.MaxLength != 22 {
		t.Fatalf("unexpected password window %d..%d", cfg.Password.MinLength, cfg.Password.MaxLength)
	}
	if cfg.Account.DefaultRole != "User" {
		t.Fatalf("unexpected default role %q", cfg.Account.DefaultRole)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"zero token ttl", func(c *Config) { c.Token.DefaultTTL = 0 }, false},
		{"unknown algorithm", func(c *Config) { c.Password.Algorithm = "md5" }, false},
		{"argon2 memory too low", func(c *Config) { c.Password.Memory = 1024 }, false},
		{"argon2 zero time", func(c *Config) { c.Password.Time = 0 }, false},
		{"argon2 short salt", func(c *Config) { c.Password.SaltLength = 8 }, false},
		{"bcrypt cost too low", func(c *Config) {
			c.Password.Algorithm = HashBcrypt
			c.Password.BcryptCost = 3
		}, false},
		{"unused bcrypt fallback cost", func(c *Config) {
			c.Password.Algorithm = HashArgon2id
			c.Password.BcryptCost = 3
		}, false},
		{"unused argon2 fallback memory", func(c *Config) {
			c.Password.Algorithm = HashBcrypt
			c.Password.Memory = 1024
		}, false},
		{"argon2 key too long", func(c *Config) { c.Password.KeyLength = 65 }, false},
		{"bcrypt cost ok", func(c *Config) {
			c.Password.Algorithm = HashBcrypt
			c.Password.BcryptCost = 10
		}, true},
		{"min length zero", func(c *Config) { c.Password.MinLength = 0 }, false},
		{"max below min", func(c *Config) { c.Password.MaxLength = 3 }, false},
		{"default role too long", func(c *Config) { c.Account.DefaultRole = strings.Repeat("r", 21) }, false},
		{"no default role", func(c *Config) { c.Account.DefaultRole = "" }, true},
		{"cache without prefix", func(c *Config) { c.Cache.RedisPrefix = "" }, false},
		{"cache without ttl", func(c *Config) { c.Cache.TTL = 0 }, false},
		{"cache disabled ignores ttl", func(c *Config) {
			c.Cache.Enabled = false
			c.Cache.TTL = 0
		}, true},
		{"audit zero buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}
