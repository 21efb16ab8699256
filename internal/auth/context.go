package auth

import (
	"context"

	"github.com/debemdeboas/roteiro/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyUserId is the key for user ID in request context
const ContextKeyUserId ContextKey = "userID"

// ContextWithUserId returns a new context with the user ID set
func ContextWithUserId(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userID)
}

// UserIdFromContext extracts the user ID from context
func UserIdFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(ContextKeyUserId).(model.UserID)
	return userID, ok && userID != ""
}
