// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/arlanhendrawinata/wagate/internal/log"
)

// BearerAuth guards the API with a static bearer token. An empty configured
// token disables authentication, which is only sensible behind a trusted
// reverse proxy.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := bearerToken(r)
			if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				log.WithComponentFromContext(r.Context(), "api").Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("rejected unauthenticated request")
				w.Header().Set("WWW-Authenticate", `Bearer realm="wagate"`)
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
