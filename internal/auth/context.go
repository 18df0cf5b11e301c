package auth

import "context"

type ctxKey struct{}

// WithOwner returns a context carrying the authenticated owner ID
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext returns the owner ID set by WithOwner, or "" if none
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKey{}).(string)
	return owner
}
