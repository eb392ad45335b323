package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKeyHeader carries the key for clients that cannot set Authorization (e.g. beacon-style click posts).
const apiKeyHeader = "X-API-Key"

// publicPaths are polled by the platform and never require a key.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// BearerAuthMiddleware accepts a static API key as "Authorization: Bearer <key>" or in X-API-Key.
// Keys are compared in constant time. With no configured keys the middleware is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := requestKey(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			if !knownKey(keys, token) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestKey extracts the presented key. A non-empty message describes why none was usable.
func requestKey(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", "authorization header must use Bearer scheme"
		}
		if token = strings.TrimSpace(token); token == "" {
			return "", "missing bearer token"
		}
		return token, ""
	}
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key, ""
	}
	return "", "missing api key"
}

func knownKey(keys [][]byte, token string) bool {
	presented := []byte(token)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, presented)
	}
	return found == 1
}
