// Package auth verifies API bearer tokens and carries the resolved tenant
// identity through the request context. Token issuance and user management
// live in the account service; this service only verifies.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/luminahr/pulse-engage/internal/pkg/httputil"
)

// ErrInvalidToken is returned for unknown, revoked, or malformed tokens.
var ErrInvalidToken = errors.New("invalid or inactive token")

// Identity is the authenticated caller: the tenant every query must be
// scoped to, and the human actor recorded in audit entries.
type Identity struct {
	TenantID string
	Actor    string
}

// TokenStore resolves a hashed bearer token to an identity.
// Implementations must return ErrInvalidToken for unknown tokens.
type TokenStore interface {
	Lookup(ctx context.Context, tokenHash string) (*Identity, error)
}

// HashToken returns the hex SHA-256 of a raw bearer token. Only hashes are
// stored and compared; the raw token never touches the database.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type contextKey struct{}

// FromContext returns the identity placed by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for handler
// tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware authenticates requests with an Authorization: Bearer header.
// Requests without a valid token get a 401 before any campaign state is
// touched.
func Middleware(store TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.Unauthorized(w, "missing bearer token")
				return
			}

			id, err := store.Lookup(r.Context(), HashToken(raw))
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					httputil.Unauthorized(w, "invalid bearer token")
					return
				}
				httputil.InternalError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
