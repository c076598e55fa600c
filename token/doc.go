// Package token issues and verifies stateless, expiring, purpose-bound signed
// tokens for out-of-band account flows (confirmation, password reset, email change).
//
// Tokens are compact HS256 JWS strings, URL-safe by construction, whose claims
// map the purpose name to the subject identifier:
//
//	{"reset": "user-42", "iat": 1700000000, "exp": 1700003600}
//
// The signing secret is fetched from a [SecretSource] on every call, so rotating
// the process-wide secret invalidates all outstanding tokens. The clock is
// injectable for tests.
package token
