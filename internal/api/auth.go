package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Headers set by the trusted gateway in front of the server.
const (
	HeaderOwnerID   = "X-Owner-ID"
	HeaderOwnerRole = "X-Owner-Role"
)

const roleAdmin = "admin"

func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Identity is the caller on whose behalf a request runs.
type Identity struct {
	OwnerID string
	Admin   bool
}

// CanAccess reports whether the caller may read or modify a record of ownerID.
func (id Identity) CanAccess(ownerID string) bool {
	return id.Admin || id.OwnerID == ownerID
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by OwnerIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// OwnerIdentity rejects requests without an owner id and stores the caller's
// identity in the request context.
func OwnerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(HeaderOwnerID))
		if ownerID == "" {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing %s header", HeaderOwnerID)
			return
		}
		id := Identity{
			OwnerID: ownerID,
			Admin:   strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderOwnerRole)), roleAdmin),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin lets only admin callers through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.Admin {
			httpError(w, http.StatusForbidden, "permission_error", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
