package password

import (
	"errors"
	"strings"
	"testing"
)

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"min length", "abc123", true},
		{"max length", strings.Repeat("a", 22), true},
		{"all symbols", "@!#$%^&*.~", true},
		{"mixed", "Sp3ll.W0rks!", true},
		{"empty", "", false},
		{"too short", "abc12", false},
		{"too long", strings.Repeat("a", 23), false},
		{"space", "abc 123", false},
		{"dash", "abc-123", false},
		{"underscore", "abc_123", false},
		{"plus", "abc+123", false},
		{"non ascii", "pässwörd", false},
		{"newline", "abc123\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.password)
			if tt.ok && err != nil {
				t.Fatalf("expected %q to be accepted, got %v", tt.password, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("expected %q to be rejected with ErrInvalidFormat, got %v", tt.password, err)
			}
		})
	}
}

func TestPolicyCustomSymbols(t *testing.T) {
	p := Policy{MinLength: 4, MaxLength: 8, Symbols: "-"}
	if err := p.Validate("ab-cd"); err != nil {
		t.Fatalf("expected custom symbol to be accepted: %v", err)
	}
	if err := p.Validate("ab@cd"); err == nil {
		t.Fatal("expected symbol outside custom set to be rejected")
	}
}
