package approvalapi

import (
	"net/http"
	"strings"

	"github.com/sentineltrace/guardctl/internal/domain/auth"
)

// KeySource supplies the credential this surface's bearer-token middleware
// checks presented keys against -- one argon2id hash per configured
// operator, mirroring the teacher's api_key.go hash formats.
type KeySource interface {
	// Keys returns the configured key hashes. Called per request; callers
	// needing a static list should return a pre-built slice.
	Keys() []string
}

// StaticKeys is a KeySource over a fixed, in-memory hash list -- the shape
// config.AuthConfig.APIKeys takes once loaded at startup.
type StaticKeys []string

func (k StaticKeys) Keys() []string { return k }

// RequireBearer wraps next with a middleware that accepts only requests
// carrying "Authorization: Bearer <key>" where key verifies against one of
// the configured hashes. guardctl's Non-goals leave approver identity to
// the chat/bot transport itself (§4.6.7) -- this middleware only gates
// whether the caller may invoke resolve_approval/resolve_bot_reply at all.
func RequireBearer(keys KeySource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r)
		if raw == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		for _, hash := range keys.Keys() {
			match, err := auth.VerifyKey(raw, hash)
			if err == nil && match {
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "invalid bearer token")
	})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}
