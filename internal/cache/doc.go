// Package cache stores resolved principals (an account record plus its role)
// in Redis so request-time user loading can skip the database.
//
// Entries are versioned JSON envelopes. The role mask travels as the fixed
// 8-byte permission encoding so a cached principal never disagrees with the
// mask layout in the permission package. An undecodable or foreign-version
// entry is treated as a miss and removed.
package cache
