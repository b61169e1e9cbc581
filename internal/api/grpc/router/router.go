package router

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"

	"github.com/dtroode/identity-server/internal/api/grpc/handler"
	"github.com/dtroode/identity-server/internal/api/grpc/identity"
	"github.com/dtroode/identity-server/internal/api/grpc/middleware"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/validation"
)

// TokenService rotates, revokes and validates tokens.
type TokenService interface {
	handler.TokenService
	middleware.TokenService
}

// protectedMethods require a valid access token.
var protectedMethods = map[string]struct{}{
	identity.FullMethod(identity.MethodHealth):           {},
	identity.FullMethod(identity.MethodSetupTwoFactor):   {},
	identity.FullMethod(identity.MethodConfirmTwoFactor): {},
	identity.FullMethod(identity.MethodDisableTwoFactor): {},
}

// Router wires the identity handler and its interceptors into a gRPC server.
type Router struct {
	authService         handler.AuthService
	tokenService        TokenService
	registrationService handler.RegistrationService
	twoFactorService    handler.TwoFactorService
	contextManager      model.ContextManager
	validator           *validation.Validator
	logger              *logger.Logger
}

// New creates new gRPC Router instance.
func New(
	authService handler.AuthService,
	tokenService TokenService,
	registrationService handler.RegistrationService,
	twoFactorService handler.TwoFactorService,
	contextManager model.ContextManager,
	validator *validation.Validator,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:         authService,
		tokenService:        tokenService,
		registrationService: registrationService,
		twoFactorService:    twoFactorService,
		contextManager:      contextManager,
		validator:           validator,
		logger:              logger,
	}
}

func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	_, ok := protectedMethods[c.FullMethod()]
	return ok
}

// Register builds the gRPC server with recovery, request logging and
// authentication interceptors and registers the identity service on it.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	recoverer := middleware.NewRecovery(r.logger)

	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoverer.HandlePanic)),
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	s := grpc.NewServer(opts...)

	identityHandler := handler.NewIdentity(
		r.authService,
		r.tokenService,
		r.registrationService,
		r.twoFactorService,
		r.contextManager,
		r.validator,
		r.logger,
	)
	identity.RegisterIdentityServer(s, identityHandler)

	return s
}
