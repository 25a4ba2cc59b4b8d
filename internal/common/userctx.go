package common

import (
	"context"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// UserContext holds the authenticated requester's identity and scope,
// extracted from the bearer token by the auth middleware. When absent the
// request is anonymous and every export permission check fails.
type UserContext struct {
	UserID string
	Role   models.Role
	Ward   string // ward scope for WARD_OFFICER; empty means unscoped
}

type contextKey int

const (
	userContextKey contextKey = iota
	correlationIDKey
)

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// WithCorrelationID stores the request correlation id in context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation id, or "" when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ResolveRole returns the requester's role, or RoleCitizen when no user
// context is present. Citizen is the most restricted role, so an anonymous
// request can never see more than an authenticated one.
func ResolveRole(ctx context.Context) models.Role {
	if uc := UserContextFromContext(ctx); uc != nil && uc.Role != "" {
		return uc.Role
	}
	return models.RoleCitizen
}

// ResolveWard returns the requester's ward scope, or "" when unscoped.
func ResolveWard(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.Ward
	}
	return ""
}
