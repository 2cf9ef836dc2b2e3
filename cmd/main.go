package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/users-server/api/userapi"
	"github.com/dtroode/users-server/database"
	grpcctx "github.com/dtroode/users-server/internal/api/grpc/context"
	"github.com/dtroode/users-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/users-server/internal/api/grpc/server"
	adminhttp "github.com/dtroode/users-server/internal/api/http"
	"github.com/dtroode/users-server/internal/config"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/metrics"
	"github.com/dtroode/users-server/internal/model"
	"github.com/dtroode/users-server/internal/repository/postgres"
	"github.com/dtroode/users-server/internal/security"
	"github.com/dtroode/users-server/internal/seed"
	"github.com/dtroode/users-server/internal/server"
	"github.com/dtroode/users-server/internal/service"
	"github.com/dtroode/users-server/internal/validation"
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
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting users server", "version", buildVersion, "date", buildDate, "commit", buildCommit)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewProm(reg)

	dsn := cfg.Database.ConnString()
	db, err := postgres.NewConnection(ctx, dsn, cfg.Database.MaxConns,
		postgres.WithRetryPolicy(postgres.RetryPolicy{
			MaxRetries:      cfg.Database.RetryMax,
			InitialInterval: postgres.DefaultRetryPolicy.InitialInterval,
			MaxDelay:        cfg.Database.RetryMaxDelay,
		}),
		postgres.WithObserver(prom),
	)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	sqlDB, err := database.Open(dsn)
	if err != nil {
		logger.Fatal("failed to open migration connection", "error", err)
	}
	migrator := database.NewMigrator(sqlDB, cfg.Database.Schema, logger)

	userRepo := postgres.NewUserRepository(db)
	hasher := security.NewHasher(cfg.Bcrypt.Cost)

	if err := initDatabase(ctx, cfg, migrator, userRepo, hasher, logger); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close migration connection", "error", err)
	}

	userService := service.NewUser(userRepo, hasher, validation.New(), logger)

	r := router.New(userService, grpcctx.NewManager(), logger,
		router.WithMaxMessageBytes(cfg.GRPC.MaxMessageBytes),
		router.WithReflection(cfg.GRPC.Reflection),
		router.WithMetrics(prom),
	)
	grpcSrv := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	adminSrv := adminhttp.NewServer(
		fmt.Sprintf(":%s", cfg.HTTP.Port),
		adminhttp.NewRouter(serviceInfo(cfg), db, reg, logger),
	)

	r.SetServing()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return startServer(logger, grpcSrv,
			server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName))
	})
	g.Go(func() error {
		return startServer(logger, adminSrv, server.NewPlainListener())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		r.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, s := range []model.Server{grpcSrv, adminSrv} {
			if err := s.Stop(shutdownCtx); err != nil {
				logger.Error("error during server shutdown", "error", err, "address", s.Address())
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func startServer(logger *logger.Logger, s model.Server, sl model.SecurityLayer) error {
	logger.Info("starting server", "address", s.Address())
	if err := s.Start(sl); err != nil {
		return fmt.Errorf("server %s: %w", s.Address(), err)
	}
	return nil
}

// initDatabase seeds example accounts when enabled, otherwise it only migrates.
func initDatabase(
	ctx context.Context,
	cfg *config.Config,
	migrator model.Migrator,
	store model.UserStore,
	hasher model.PasswordHasher,
	logger *logger.Logger,
) error {
	if !cfg.Seed.Enabled {
		return migrator.Migrate(ctx)
	}
	return seed.NewSeeder(migrator, store, hasher, seed.DefaultAccounts, logger).Run(ctx)
}

func serviceInfo(cfg *config.Config) adminhttp.Info {
	return adminhttp.Info{
		Service:     userapi.UserService_ServiceDesc.ServiceName,
		Version:     buildVersion,
		Description: "User management service over gRPC",
		Endpoints: []string{
			"GetUser - returns a user by ID",
			"ListUsers - lists users with pagination (streaming)",
			"CreateUser - creates a new user",
			"UpdateUser - updates an existing user",
			"DeleteUser - deactivates a user (logical delete)",
		},
		GRPCPort: cfg.GRPC.Port,
	}
}
