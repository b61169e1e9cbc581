package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/identity-server/internal/api/grpc/context"
	"github.com/dtroode/identity-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/identity-server/internal/api/grpc/server"
	rediscache "github.com/dtroode/identity-server/internal/cache/redis"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/config"
	"github.com/dtroode/identity-server/internal/encryption"
	redisevents "github.com/dtroode/identity-server/internal/events/redis"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/otp"
	"github.com/dtroode/identity-server/internal/password"
	"github.com/dtroode/identity-server/internal/repository/postgres"
	"github.com/dtroode/identity-server/internal/server"
	"github.com/dtroode/identity-server/internal/service"
	"github.com/dtroode/identity-server/internal/token"
	"github.com/dtroode/identity-server/internal/totp"
	"github.com/dtroode/identity-server/internal/validation"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	redisClient, err := rediscache.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	key, iv, err := cfg.Encryption.Material()
	if err != nil {
		logger.Fatal("failed to read encryption material", "error", err)
	}
	encryptor, err := encryption.NewAESCBC(key, iv)
	if err != nil {
		logger.Fatal("failed to initialize encryption", "error", err)
	}

	clk := clock.New()
	validator := validation.New()
	hasher := password.NewBcrypt(0)
	cache := rediscache.NewCache(redisClient)
	publisher := redisevents.NewPublisher(redisClient, cfg.Events.Stream, clk)

	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	tokenManager := token.NewJWT(cfg.JWT, clk)
	totpEngine := totp.NewEngine(cfg.TOTP.Issuer, clk, hasher, encryptor)
	otpIssuer := otp.NewIssuer(cache, cfg.Registration.OtpMaxAttempts, cfg.Registration.OtpTTL, logger)

	tokenService := service.NewTokenService(tokenManager, cache, clk, cfg.JWT.RefreshTTL(), logger)
	twoFactorService := service.NewTwoFactor(userRepo, totpEngine, clk, logger)
	authService := service.NewAuth(userRepo, hasher, tokenService, twoFactorService, validator, clk, cfg.Lockout, logger)
	registrationService := service.NewRegistration(
		userRepo, roleRepo, cache, otpIssuer, hasher, publisher, validator, clk, cfg.Registration, logger,
	)

	r := router.New(authService, tokenService, registrationService, twoFactorService, grpcctx.NewManager(), validator, logger)
	gs := r.Register()
	reflection.Register(gs)

	srv := grpcServer.NewGRPCServer(gs, fmt.Sprintf(":%s", cfg.GRPC.Port))

	var sl model.SecurityLayer
	if cfg.GRPC.EnableHTTPS {
		sl = server.NewTLSListener(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("starting server", "address", s.Address(), "tls", cfg.GRPC.EnableHTTPS)
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
