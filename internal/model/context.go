package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager carries the authenticated principal through request contexts.
type ContextManager interface {
	SetUserToContext(ctx context.Context, userID uuid.UUID, email string) context.Context
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
	GetEmailFromContext(ctx context.Context) (string, bool)
}
