package password

import (
	"errors"
	"strings"
)

const (
	DefaultMinLength = 6
	DefaultMaxLength = 22
	DefaultSymbols   = "@!#$%^&*.~"
)

// ErrInvalidFormat is returned when a plaintext password does not satisfy the policy.
var ErrInvalidFormat = errors.New("password is not valid")

// Policy restricts accepted plaintext passwords to ASCII letters, digits and
// an explicit symbol set, within a length window.
type Policy struct {
	MinLength int
	MaxLength int
	Symbols   string
}

// DefaultPolicy accepts 6 to 22 characters from [A-Za-z0-9@!#$%^&*.~].
func DefaultPolicy() Policy {
	return Policy{
		MinLength: DefaultMinLength,
		MaxLength: DefaultMaxLength,
		Symbols:   DefaultSymbols,
	}
}

// Validate returns ErrInvalidFormat unless password satisfies p.
func (p Policy) Validate(password string) error {
	if len(password) < p.MinLength || len(password) > p.MaxLength {
		return ErrInvalidFormat
	}
	for i := 0; i < len(password); i++ {
		if !p.allowed(password[i]) {
			return ErrInvalidFormat
		}
	}
	return nil
}

func (p Policy) allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte(p.Symbols, c) >= 0
}
