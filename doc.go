// Package spellauth manages user accounts, role permissions, password
// credentials and purpose-bound signed tokens.
//
// An [Engine] is assembled once through [Builder.Build] and is safe to call
// from multiple goroutines afterwards. Persistence sits behind the contracts
// in package store; the memory, postgres and gormstore packages implement
// them.
//
// # Architecture boundaries
//
// spellauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([User], [Role], MetricsSnapshot). Role reconciliation,
// principal caching and audit dispatch live under internal/ and are never
// exported.
//
// # Bootstrap
//
// Roles are not created lazily. Call [Engine.ReconcileRoles] once at startup
// (or run the reconcile subcommand of cmd/spellauth) before creating users.
//
// # Tokens
//
// Token verification is boolean. Expired, forged, malformed and misdirected
// tokens all report false; the precise reason only reaches audit events and
// metrics.
package spellauth
