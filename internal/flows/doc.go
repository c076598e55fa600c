// Package flows contains pure-function orchestrators for multi-step Engine
// operations.
//
// Each flow function accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies, which keeps the Engine thin
// and lets flows be tested with in-memory fakes.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import spellauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
