package token

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL applies when Issue is called with a non-positive ttl.
const DefaultTTL = time.Hour

var (
	ErrUnknownPurpose  = errors.New("unknown token purpose")
	ErrMalformed       = errors.New("token malformed or signature invalid")
	ErrExpired         = errors.New("token expired")
	ErrPurposeMissing  = errors.New("token does not carry purpose")
	ErrSubjectMismatch = errors.New("token subject mismatch")
)

const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
)

// Config configures a [Signer].
type Config struct {
	Secret     SecretSource
	Now        func() time.Time
	DefaultTTL time.Duration
}

// Signer issues and verifies purpose-bound tokens. It holds no secret
// material itself and is safe for concurrent use.
type Signer struct {
	secret     SecretSource
	now        func() time.Time
	defaultTTL time.Duration
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.Secret == nil {
		return nil, errors.New("token: secret source required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultTTL < 0 {
		return nil, errors.New("token: default ttl must be >= 0")
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	return &Signer{secret: cfg.Secret, now: cfg.Now, defaultTTL: cfg.DefaultTTL}, nil
}

// Issue signs {purpose: subject} with an absolute expiry ttl from now.
// An unknown purpose or an unavailable secret produces no token.
func (s *Signer) Issue(purpose Purpose, subject string, ttl time.Duration) (string, bool) {
	tok, err := s.issue(purpose, subject, ttl)
	if err != nil {
		return "", false
	}
	return tok, true
}

func (s *Signer) issue(purpose Purpose, subject string, ttl time.Duration) (string, error) {
	if !purpose.Valid() {
		return "", ErrUnknownPurpose
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	key, err := s.key()
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwt.MapClaims{
		string(purpose): subject,
		claimIssuedAt:   now.Unix(),
		claimExpiresAt:  now.Add(ttl).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Verify reports whether tok is a live token for purpose bound to subject.
// Every failure collapses to false.
func (s *Signer) Verify(purpose Purpose, tok, subject string) bool {
	return s.Inspect(purpose, tok, subject) == nil
}

// Inspect performs the same checks as Verify and returns the first failure.
// It exists for audit trails; callers deciding access should use Verify.
func (s *Signer) Inspect(purpose Purpose, tok, subject string) error {
	if !purpose.Valid() {
		return ErrUnknownPurpose
	}

	key, err := s.key()
	if err != nil {
		return err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	_, err = parser.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	raw, ok := claims[string(purpose)]
	if !ok {
		return ErrPurposeMissing
	}
	got, ok := raw.(string)
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(subject)) != 1 {
		return ErrSubjectMismatch
	}
	return nil
}

func (s *Signer) key() ([]byte, error) {
	key, err := s.secret.SigningSecret()
	if err != nil {
		if errors.Is(err, ErrSecretUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	if len(key) == 0 {
		return nil, ErrSecretUnavailable
	}
	return key, nil
}
