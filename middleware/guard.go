package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/permission"
)

type principalContextKey struct{}

// IDFunc extracts the session-stored user identifier from a request. An
// empty string means the request is anonymous.
type IDFunc func(r *http.Request) string

// PrincipalFromContext returns the user attached by LoadPrincipal.
func PrincipalFromContext(ctx context.Context) (*spellauth.User, bool) {
	u, ok := ctx.Value(principalContextKey{}).(*spellauth.User)
	return u, ok && u != nil
}

// WithPrincipal attaches u to ctx.
func WithPrincipal(ctx context.Context, u *spellauth.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, u)
}

// LoadPrincipal resolves the request's user through loader and attaches it
// to the request context. Unknown ids continue as anonymous; loader failures
// answer 503.
func LoadPrincipal(loader spellauth.UserLoader, id IDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loader == nil || id == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID := id(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := loader(r.Context(), userID)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			if u == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := spellauth.WithClientIP(WithPrincipal(r.Context(), u), clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects anonymous requests with 401 and requests whose
// principal lacks any bit of capability with 403.
func RequirePermission(capability permission.Mask) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !u.Can(capability) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HeaderID reads the user identifier from the named header.
func HeaderID(name string) IDFunc {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
