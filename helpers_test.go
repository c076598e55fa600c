package spellauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/spellauth/store/memory"
	"github.com/MrEthical07/spellauth/token"
)

const testPassword = "horse.42!"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig keeps hashing cheap and counters on.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Algorithm = HashBcrypt
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memory.Store
	clock  *fakeClock
}

func newTestEnv(t *testing.T, cfg Config, extra ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{store: memory.New(), clock: newFakeClock()}
	b := New().
		WithConfig(cfg).
		WithStores(env.store).
		WithSecretSource(token.StaticSecret([]byte("test-secret"))).
		WithClock(env.clock.Now)
	for _, fn := range extra {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.ReconcileRoles(context.Background()); err != nil {
		t.Fatalf("ReconcileRoles failed: %v", err)
	}
	env.engine = engine
	return env
}

func (env *testEnv) createUser(t *testing.T, username string) *User {
	t.Helper()
	u, err := env.engine.CreateUser(context.Background(), NewUser{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", username, err)
	}
	return u
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}
