package permission

import (
	"errors"
	"strings"
	"testing"
)

func TestNamedBitsDoNotCollide(t *testing.T) {
	bits := []Mask{Follow, Comment, Post, WriteArticle, Administer}
	var seen Mask
	for _, b := range bits {
		if !singleBit(b) {
			t.Fatalf("capability %#x is not a single bit", b)
		}
		if seen&b != 0 {
			t.Fatalf("capability %#x collides with %#x", b, seen)
		}
		seen |= b
	}
}

func TestCanonicalRolePermissions(t *testing.T) {
	rm := DefaultRoles()

	admin, ok := rm.GetMask(RoleAdministrator)
	if !ok {
		t.Fatal("expected Administrator role")
	}
	if !Has(admin, Administer) {
		t.Fatal("Administrator must hold ADMINISTER")
	}

	user, _ := rm.GetMask(RoleUser)
	if Has(user, WriteArticle) {
		t.Fatal("User must not hold WRITE_ARTICLE")
	}
	if user != 0x07 {
		t.Fatalf("User mask = %#x, want 0x07", user)
	}

	member, _ := rm.GetMask(RoleMember)
	if !Has(member, WriteArticle) {
		t.Fatal("Member must hold WRITE_ARTICLE")
	}
	if member != 0x0F {
		t.Fatalf("Member mask = %#x, want 0x0F", member)
	}
}

func TestHasZeroCapability(t *testing.T) {
	if Has(All, 0) {
		t.Fatal("zero capability must never be granted")
	}
}

func TestMaskWithWithout(t *testing.T) {
	m := Mask(0).With(Follow).With(Post)
	if !m.Has(Follow) || !m.Has(Post) || m.Has(Comment) {
		t.Fatalf("unexpected mask %#x", m)
	}
	m = m.Without(Follow)
	if m.Has(Follow) {
		t.Fatal("expected Follow cleared")
	}
}

func TestRegistryRejectsCollisions(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("follow", Follow); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("follow", Comment); !errors.Is(err, ErrDuplicatePermission) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if err := r.Register("shadow", Follow); !errors.Is(err, ErrBitCollision) {
		t.Fatalf("expected bit collision error, got %v", err)
	}
	if err := r.Register("combo", Follow|Comment); !errors.Is(err, ErrInvalidBit) {
		t.Fatalf("expected invalid bit error, got %v", err)
	}
	r.Freeze()
	if err := r.Register("late", Post); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
}

func TestRegistryParseAndNames(t *testing.T) {
	r := DefaultRegistry()

	m, err := r.Parse([]string{"follow", " post ", "write_article"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != Follow|Post|WriteArticle {
		t.Fatalf("parsed mask = %#x", m)
	}

	got := strings.Join(r.Names(m), ",")
	if got != "follow,post,write_article" {
		t.Fatalf("names = %q", got)
	}

	if _, err := r.Parse([]string{"fly"}); !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected unknown permission, got %v", err)
	}
}

func TestRoleManagerRegisterRole(t *testing.T) {
	rm := NewRoleManager(nil)
	if err := rm.RegisterRole("Moderator", []string{"comment", "administer"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	mask, ok := rm.GetMask("Moderator")
	if !ok || mask != Comment|Administer {
		t.Fatalf("unexpected mask %#x ok=%v", mask, ok)
	}
	if err := rm.RegisterMask("Moderator", Post); !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected duplicate role, got %v", err)
	}
	if err := rm.RegisterMask(strings.Repeat("r", MaxRoleNameLength+1), Post); !errors.Is(err, ErrRoleNameTooLong) {
		t.Fatalf("expected name too long, got %v", err)
	}
	if err := rm.RegisterMask("  ", Post); !errors.Is(err, ErrRoleNameEmpty) {
		t.Fatalf("expected empty name, got %v", err)
	}
}

func TestDefinitionsKeepOrder(t *testing.T) {
	defs := DefaultRoles().Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	want := []string{RoleUser, RoleMember, RoleAdministrator}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Fatalf("definition %d = %s, want %s", i, d.Name, want[i])
		}
	}
	if err := DefaultRoles().RegisterMask("Extra", Post); !errors.Is(err, ErrRoleManagerFrozen) {
		t.Fatalf("expected frozen manager, got %v", err)
	}
}
