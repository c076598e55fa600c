// Package middleware adapts spellauth's user loader to net/http.
//
// # Handlers
//
//   - [LoadPrincipal] resolves the session user id through a
//     [spellauth.UserLoader] and stores the User in the request context.
//   - [RequirePermission] gates a handler on a permission mask.
//
// Session management is not handled here: callers supply an [IDFunc] that
// reads the identifier their session layer stored.
package middleware
