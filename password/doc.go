// Package password implements the credential format policy and one-way password
// hashing with Argon2id defaults.
//
// # Output format
//
// Argon2 hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes keep the standard modular-crypt form ($2a$, $2b$, $2y$).
// [Multi] hashes with one algorithm and verifies any supported one, so stored
// bcrypt credentials keep working after switching the default to Argon2id.
//
// # Architecture boundaries
//
// This package owns format policy, hashing and verification only. Deciding when
// a credential is persisted is up to the caller.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords: callers supply plaintext and receive hashes.
//   - Return the plaintext or anything reversible from it.
//   - Log plaintext passwords or hash parameters at runtime.
package password
