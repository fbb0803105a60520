package auth

import (
	"context"

	"github.com/tmarlen/quillpost/internal/domain"
)

// ctxKey is a private type for context keys defined in this package.
type ctxKey int

const principalKey ctxKey = iota

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal from a context.
// The boolean is false when the pipeline has not run for this request.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}
