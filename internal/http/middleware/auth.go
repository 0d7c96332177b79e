package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPrefixes are reachable without the bearer token. The door controller
// and the PLC cannot attach headers, and health probes should never need
// credentials.
var exemptPrefixes = []string{
	"/",
	"/health",
	"/access/hik/webhook",
	"/plc/di",
}

func exempt(path string) bool {
	for _, p := range exemptPrefixes {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// BearerAuth guards every endpoint behind one shared static token. Compare
// is constant time. An empty configured token disables the guard entirely,
// which is only acceptable on a closed network.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		expected := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}
			got := []byte(strings.TrimSpace(parts[1]))
			if len(got) != len(expected) || subtle.ConstantTimeCompare(got, expected) != 1 {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
