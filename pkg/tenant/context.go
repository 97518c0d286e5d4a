package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenantId"
	studioIDKey contextKey = "studioId"
	actorIDKey  contextKey = "actorId"
)

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrMissingTenantID      = errors.New("tenantId is required")
	ErrMissingActorID       = errors.New("actorId is required")
)

// Context holds the identifiers that scope every read and write.
type Context struct {
	// TenantID is the business that owns all records
	TenantID string `json:"tenantId"`

	// StudioID is an optional default location for the caller
	StudioID string `json:"studioId,omitempty"`

	// ActorID is the authenticated user performing the operation
	ActorID string `json:"actorId"`
}

// Validate requires a tenant and an actor
func (c *Context) Validate() error {
	if c.TenantID == "" {
		return ErrMissingTenantID
	}
	if c.ActorID == "" {
		return ErrMissingActorID
	}
	return nil
}

// FromContext extracts the tenant context, failing when no tenant is present
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}

	if id, ok := ctx.Value(tenantIDKey).(string); ok {
		tc.TenantID = id
	}
	if id, ok := ctx.Value(studioIDKey).(string); ok {
		tc.StudioID = id
	}
	if id, ok := ctx.Value(actorIDKey).(string); ok {
		tc.ActorID = id
	}

	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// ToContext stores non-empty tenant values on ctx
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.StudioID != "" {
		ctx = context.WithValue(ctx, studioIDKey, tc.StudioID)
	}
	if tc.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, tc.ActorID)
	}
	return ctx
}
