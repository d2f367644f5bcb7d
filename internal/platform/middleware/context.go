package middleware

import "context"

type roleKey struct{}

func withRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func roleFrom(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey{}).(string); ok {
		return role
	}
	return ""
}

// WithRole injects a role into a context. Useful for handler tests that
// bypass RequireAuth.
func WithRole(ctx context.Context, role string) context.Context {
	return withRole(ctx, role)
}
