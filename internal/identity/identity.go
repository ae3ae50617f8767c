// Package identity carries the authenticated principal through a request context.
package identity

import (
	"context"

	"picturegram-sync/internal/models"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal, if any.
func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	if !ok || p.ID == "" {
		return models.Principal{}, false
	}
	return p, true
}

// ContextProvider resolves the current principal from the call context
type ContextProvider struct{}

func (ContextProvider) CurrentPrincipal(ctx context.Context) (models.Principal, bool) {
	return FromContext(ctx)
}
