package tenant

import (
	"context"

	"authlinks/pkg/logging"
)

type contextKey struct{}

// WithTenant stamps the tenant onto the context for downstream reads,
// writes, and log fields.
func WithTenant(ctx context.Context, tenant string) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, tenant)
	return logging.WithTenant(ctx, tenant)
}

func FromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(contextKey{}).(string); ok {
		return tenant
	}
	return ""
}
