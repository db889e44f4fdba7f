package auth

import "context"

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID    int64
	SessionID string
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
