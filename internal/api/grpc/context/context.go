package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/identity-server/internal/model"
)

// Metadata keys holding the authenticated principal.
const (
	userIDKey string = "user_id"
	emailKey  string = "user_email"
)

// Manager stores the authenticated user in incoming gRPC metadata.
type Manager struct{}

var _ model.ContextManager = (*Manager)(nil)

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext returns a context whose incoming metadata carries the user
// ID and email. Values sent by the client under the same keys are replaced.
func (m *Manager) SetUserToContext(ctx context.Context, userID uuid.UUID, email string) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	} else {
		md = md.Copy()
	}

	md.Set(userIDKey, userID.String())
	md.Set(emailKey, email)

	return metadata.NewIncomingContext(ctx, md)
}

// GetUserIDFromContext returns the authenticated user ID.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value, ok := first(ctx, userIDKey)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(value)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, false
	}

	return userID, true
}

// GetEmailFromContext returns the authenticated user email.
func (m *Manager) GetEmailFromContext(ctx context.Context) (string, bool) {
	value, ok := first(ctx, emailKey)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func first(ctx context.Context, key string) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get(key)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
