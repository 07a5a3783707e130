package api

import (
	"context"
	"time"

	"github.com/zoe-motors/storefront-api/session"
)

// QueryTimeout is the default timeout for database queries
var QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type identityKey struct{}

// WithIdentity stores the authenticated identity on ctx
func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the auth middleware
func IdentityFrom(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(session.Identity)
	return id, ok && id.UserID != ""
}
