// Package store defines the persistence contract for accounts, roles and the
// follow graph: plain records, the store interfaces, and the sentinel errors
// every implementation maps its backend failures onto.
//
// Implementations live in sub-packages: memory (tests, examples), postgres
// (pgx + goose migrations) and gormstore (gorm, sqlite by default).
//
// Contract summary:
//
//   - email, username and role name are unique; a conflicting create or update
//     fails with [ErrConstraintViolation] and never overwrites.
//   - each write is atomic for a single record.
//   - deleting a user removes every follow edge that references it; a user's
//     role reference is cleared when the role row disappears.
package store
