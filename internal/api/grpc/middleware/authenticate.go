package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
)

const bearerPrefix = "bearer "

// TokenService validates access tokens.
type TokenService interface {
	Authenticate(ctx context.Context, accessToken string) (model.TokenClaims, error)
}

// Authenticate validates bearer access tokens and injects the user into the context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// AuthFunc reads "authorization: Bearer <token>", validates the token as an
// access token and returns a context carrying the user ID and email.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	tokenString, ok := bearerToken(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	claims, err := m.tokenService.Authenticate(ctx, tokenString)
	if err != nil {
		m.logger.Debug("Authenticate middleware: token rejected", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid authorization token")
	}

	return m.contextManager.SetUserToContext(ctx, claims.UserID, claims.Email), nil
}

func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	headers := md.Get("authorization")
	if len(headers) == 0 {
		return "", false
	}

	header := headers[0]
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
