package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AccessKey gates every request on a shared key. The key is accepted from
// the X-Access-Key header, a bearer token, or the access_key query parameter
// (the latter for EventSource clients, which cannot set headers). An empty
// configured key disables the gate.
func AccessKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Access-Key")
			if provided == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					provided = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if provided == "" {
				provided = r.URL.Query().Get("access_key")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid access key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
