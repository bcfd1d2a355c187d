package shared

import "context"

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated owner id in context. The id is
// established upstream; this core treats it as trusted.
func ContextWithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext extracts the owner id from context, returning 0 when the
// request carries none.
func OwnerFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ownerContextKey{}).(int64)
	return id
}
