package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// Identity is the caller resolved by Auth.
type Identity struct {
	UserID   uuid.UUID
	Role     enums.Role
	AccessID string
}

// IdentityFromContext parses the authenticated caller. ok is false when the request is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return Identity{}, false
	}
	role, err := enums.ParseRole(RoleFromContext(ctx))
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: userID, Role: role, AccessID: AccessIDFromContext(ctx)}, true
}

// WithIdentity injects an authenticated caller into the context.
func WithIdentity(ctx context.Context, userID uuid.UUID, role enums.Role, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID.String())
	ctx = context.WithValue(ctx, ctxRole, string(role))
	return context.WithValue(ctx, ctxAccessID, accessID)
}
