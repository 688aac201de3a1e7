package main

import (
	"context"
	"database/sql"
	"flag"
	"os/signal"
	"syscall"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/orchestrator/pendingclaim"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "pendingclaim", "Reconciler mode: pendingclaim")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize DB connections: a pool for the repositories and a plain
	// database/sql handle for pgmq.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()
	logger.Info().Msg("Database connection established")

	// Initialize PGMQ client
	pgmqClient := pgmq.New(db)
	logger.Info().Msg("PGMQ client initialized")

	userRepo := repository.NewUserRepo(pool)
	pendingRepo := repository.NewPendingSubscriptionRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	// The worker never enqueues, so it gets no queue handle.
	userSvc := service.NewUserService(userRepo, pendingRepo, paymentRepo, nil, "", logger)

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "pendingclaim":
		runErr = pendingclaim.Run(ctx, logger, pgmqClient, userSvc, cfg)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s reconciler failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s reconciler stopped gracefully", *mode)
}
