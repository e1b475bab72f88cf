package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys are the accepted API keys. Admin keys also pass RequireAny.
type Keys struct {
	Public []string
	Admin  []string
}

// apiKey reads "Authorization: Bearer <key>" or "X-API-Key: <key>".
func apiKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// matches compares in constant time against every key in the set.
func matches(given string, set ...[]string) bool {
	if given == "" {
		return false
	}
	found := false
	for _, keys := range set {
		for _, k := range keys {
			if subtle.ConstantTimeCompare([]byte(given), []byte(k)) == 1 {
				found = true
			}
		}
	}
	return found
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny lets through requests carrying a public or admin key.
// With no keys configured at all the route is open.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Public) == 0 && len(keys.Admin) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matches(apiKey(r), keys.Public, keys.Admin) {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets through admin keys: 401 without a key, 403 with
// a non-admin one. With no admin keys configured the route is open.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Admin) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKey(r)
			switch {
			case key == "":
				deny(w, http.StatusUnauthorized, "unauthorized")
			case !matches(key, keys.Admin):
				deny(w, http.StatusForbidden, "forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
