package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := b.Hash("legacy.pw1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !b.Identifies(hash) {
		t.Fatalf("expected bcrypt to identify %q", hash)
	}
	if !b.Verify("legacy.pw1", hash) {
		t.Fatal("expected bcrypt verification to succeed")
	}
	if b.Verify("legacy.pw1x", hash) {
		t.Fatal("expected bcrypt verification to fail for wrong password")
	}
	if b.Verify("legacy.pw1", "garbage") {
		t.Fatal("expected malformed bcrypt hash to fail")
	}
}

func TestBcryptCostRange(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected out-of-range cost to be rejected")
	}
	b, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt(0) error: %v", err)
	}
	if b.cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want default", b.cost)
	}
}

func TestMultiVerifiesFallbackAndFlagsUpgrade(t *testing.T) {
	argon, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	legacy, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	m := NewMulti(argon, legacy)

	oldHash, err := legacy.Hash("abc123!")
	if err != nil {
		t.Fatalf("legacy hash: %v", err)
	}
	if !m.Verify("abc123!", oldHash) {
		t.Fatal("expected multi to verify bcrypt hash")
	}
	up, err := m.NeedsUpgrade(oldHash)
	if err != nil || !up {
		t.Fatalf("expected fallback hash to need upgrade: up=%v err=%v", up, err)
	}

	newHash, err := m.Hash("abc123!")
	if err != nil {
		t.Fatalf("multi hash: %v", err)
	}
	if !argon.Identifies(newHash) {
		t.Fatal("expected multi to hash with the primary")
	}
	up, err = m.NeedsUpgrade(newHash)
	if err != nil || up {
		t.Fatalf("expected primary hash to be current: up=%v err=%v", up, err)
	}

	if m.Verify("abc123!", "$unknown$hash") {
		t.Fatal("expected unknown hash format to fail")
	}
}
