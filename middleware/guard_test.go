package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/permission"
)

func staticLoader(users map[string]*spellauth.User, err error) spellauth.UserLoader {
	return func(_ context.Context, id string) (*spellauth.User, error) {
		if err != nil {
			return nil, err
		}
		return users[id], nil
	}
}

func serve(h http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequirePermission(t *testing.T) {
	users := map[string]*spellauth.User{
		"writer": {ID: "writer", Role: &spellauth.Role{Name: "Member", Permissions: 0x0F}},
		"reader": {ID: "reader", Role: &spellauth.Role{Name: "User", Permissions: 0x07}},
		"nobody": {ID: "nobody"},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, found := PrincipalFromContext(r.Context()); !found {
			t.Fatalf("principal missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := LoadPrincipal(staticLoader(users, nil), HeaderID("X-User-ID"))(
		RequirePermission(permission.WriteArticle)(ok),
	)

	cases := []struct {
		id   string
		want int
	}{
		{"writer", http.StatusNoContent},
		{"reader", http.StatusForbidden},
		{"nobody", http.StatusForbidden},
		{"ghost", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := serve(h, tc.id).Code; got != tc.want {
			t.Fatalf("user %q: expected %d, got %d", tc.id, tc.want, got)
		}
	}
}

func TestLoadPrincipalLoaderFailure(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	h := LoadPrincipal(staticLoader(nil, errors.New("store down")), HeaderID("X-User-ID"))(next)

	rec := serve(h, "u1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if called {
		t.Fatalf("next handler must not run on loader failure")
	}
}

func TestLoadPrincipalAnonymousPassThrough(t *testing.T) {
	var sawPrincipal bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawPrincipal = PrincipalFromContext(r.Context())
	})
	h := LoadPrincipal(staticLoader(map[string]*spellauth.User{}, nil), HeaderID("X-User-ID"))(next)

	if rec := serve(h, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sawPrincipal {
		t.Fatalf("anonymous request must not carry a principal")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:4242"
	if got := clientIP(req); got != "::1" {
		t.Fatalf("expected ::1, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected forwarded address, got %q", got)
	}
}
