// Package permission provides the capability bitmask, a name registry for the
// named capability bits, and the canonical role definitions built on top of them.
//
// # Bits
//
// Each capability occupies exactly one bit of a [Mask]. Checks are a plain
// bitwise AND, so a role granted [All] passes every current and future check.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It provides the
// codec (EncodeMask/DecodeMask) used by the principal cache.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import spellauth, token, or any store package.
//   - Reassign the bit of a named capability once published.
package permission
