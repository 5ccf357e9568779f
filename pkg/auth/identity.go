package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"chatd/pkg/config"
	"chatd/pkg/logger"
	"chatd/pkg/utils"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Shared here so limiter.go
// and gateway.go reference one type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

type ctxUserKey struct{}

// RequireSignedUser verifies the HMAC signature headers and injects the
// verified user id into the request context. Frontend callers must present
// X-User-ID plus X-User-Signature (hex HMAC-SHA256 of the id under a
// configured signing key). Backend and admin callers may omit the signature
// entirely; when one is present it is still verified.
func RequireSignedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if role == "backend" || role == "admin" {
			if sig == "" {
				// no signature; handlers may take the user from header or body
				next.ServeHTTP(w, r)
				return
			}
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the signature-verified user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserID returns a context carrying a verified user id. Intended for
// tests and for internal callers that establish identity out of band.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}

func validateUser(id string) (bool, string) {
	if id == "" {
		return false, "user id required"
	}
	if len(id) > 128 {
		return false, "user id too long"
	}
	return true, ""
}

// ResolveUserFromRequest is the canonical caller-identity resolver for
// handlers. A signature-verified id from the context wins; conflicting ids
// supplied via header or query are rejected. Without a signature,
// backend/admin roles may supply the acting user via X-User-ID or the
// user query param. Returns (id, 0, "") on success or a status and message.
func ResolveUserFromRequest(r *http.Request) (string, int, string) {
	if id := UserIDFromContext(r.Context()); id != "" {
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" && h != id {
			logger.Warn("user_mismatch_signature_header", "signature", id, "header", h, "path", r.URL.Path)
			return "", http.StatusForbidden, "user mismatch between signature and header"
		}
		if q := strings.TrimSpace(r.URL.Query().Get("user")); q != "" && q != id {
			logger.Warn("user_mismatch_signature_query", "signature", id, "query", q, "path", r.URL.Path)
			return "", http.StatusForbidden, "user mismatch between signature and query param"
		}
		return id, 0, ""
	}

	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" {
			if ok, msg := validateUser(h); !ok {
				return "", http.StatusBadRequest, msg
			}
			return h, 0, ""
		}
		if q := strings.TrimSpace(r.URL.Query().Get("user")); q != "" {
			if ok, msg := validateUser(q); !ok {
				return "", http.StatusBadRequest, msg
			}
			return q, 0, ""
		}
		return "", http.StatusBadRequest, "acting user required for backend requests"
	}

	logger.Warn("missing_user_signature", "role", role, "path", r.URL.Path)
	return "", http.StatusUnauthorized, "missing or invalid user signature"
}
