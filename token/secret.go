package token

import "errors"

var ErrSecretUnavailable = errors.New("signing secret unavailable")

// SecretSource yields the current signing secret.
type SecretSource interface {
	SigningSecret() ([]byte, error)
}

// SecretFunc adapts a function to [SecretSource].
type SecretFunc func() ([]byte, error)

func (f SecretFunc) SigningSecret() ([]byte, error) {
	return f()
}

// StaticSecret returns a source that always yields a copy of secret.
func StaticSecret(secret []byte) SecretSource {
	held := append([]byte(nil), secret...)
	return SecretFunc(func() ([]byte, error) {
		if len(held) == 0 {
			return nil, ErrSecretUnavailable
		}
		return held, nil
	})
}
