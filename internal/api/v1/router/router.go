package router

import (
	"context"
	"net/http"
	"strings"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the whole HTTP surface: database pool plus migrations, external
// clients, repositories, services and handlers. The returned cleanup closes
// everything the router opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Open DB connection pool
	dsn := normalizeDSN(cfg.DatabaseURL, cfg.Environment)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Run migrations. The pgmq queues live in the same migration set, so
	// this must happen before anything enqueues.
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		pool.Close()
		sqlDB.Close()
		logger.Error().Err(err).Msg("Failed to run migrations")
		return nil, nil, err
	}
	logger.Info().Msg("Migrations up to date")

	// 3. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		pool.Close()
		sqlDB.Close()
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 5. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 6. Initialize Pub/Sub publisher
	pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		pool.Close()
		sqlDB.Close()
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		return nil, nil, err
	}

	// 7. Resolve the webhook token
	webhookToken, err := resolveWebhookToken(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		sqlDB.Close()
		return nil, nil, err
	}

	// 8. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	pendingRepo := repository.NewPendingSubscriptionRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	expenseRepo := repository.NewExpenseRepo(pool, logger)
	budgetRepo := repository.NewBudgetRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	queue := pgmq.New(sqlDB)
	mailer := service.NewSendGridMailer(cfg, logger)

	webhookSvc := service.NewWebhookService(userRepo, pendingRepo, pubSubPublisher, mailer, cfg, logger)
	userSvc := service.NewUserService(userRepo, pendingRepo, paymentRepo, queue, cfg.PendingClaimQueueName, logger)
	gamificationSvc := service.NewGamificationService(rdb, logger)
	expenseSvc := service.NewExpenseService(expenseRepo, gamificationSvc, logger)
	budgetSvc := service.NewBudgetService(budgetRepo, expenseRepo, logger)
	extractionSvc := service.NewExtractionService(cfg, logger)
	receiptSvc := service.NewReceiptService(s3Client, cfg.S3Bucket, extractionSvc, logger)
	dlqSvc := service.NewDLQService(dlqRepo, logger)

	webhookHandler := handler.NewWebhookHandler(webhookSvc, webhookToken, logger)
	userHandler := handler.NewUserHandler(userSvc, validate)
	expenseHandler := handler.NewExpenseHandler(expenseSvc, validate)
	budgetHandler := handler.NewBudgetHandler(budgetSvc, validate)
	receiptHandler := handler.NewReceiptHandler(receiptSvc, validate)
	leaderboardHandler := handler.NewLeaderboardHandler(gamificationSvc)
	dlqHandler := handler.NewDLQHandler(dlqSvc, logger)

	// 9. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pushAuthMiddleware := middleware.PushAuthMiddleware(isLocalDev, cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	// 10. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	webhookHandler.RegisterRoutes(apiV1Mux)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	expenseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	budgetHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	receiptHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	leaderboardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	dlqHandler.RegisterRoutes(apiV1Mux, pushAuthMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Swagger documentation
	mux.HandleFunc("/swagger/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger/swagger.json")
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 11. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	cleanup := func() {
		pubSubPublisher.Close()
		rdb.Close()
		sqlDB.Close()
		pool.Close()
	}
	return middleware.LoggerMiddleware(c.Handler(mux)), cleanup, nil
}

// normalizeDSN disables SSL for local development and forces the simple
// query protocol elsewhere, where a transaction pooler like pgbouncer breaks
// server-side prepared statements.
func normalizeDSN(dsn, environment string) string {
	appendParam := func(dsn, param string) string {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			separator = "?"
			if strings.Contains(dsn, "?") {
				separator = "&"
			}
		}
		return dsn + separator + param
	}
	if environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = appendParam(dsn, "sslmode=disable")
	}
	if environment != "development" && !strings.Contains(dsn, "prefer_simple_protocol") {
		dsn = appendParam(dsn, "prefer_simple_protocol=true")
	}
	return dsn
}

func resolveWebhookToken(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (string, error) {
	if cfg.WebhookTokenSecretName == "" {
		if cfg.WebhookToken == "" {
			logger.Warn().Msg("No webhook token configured, all webhook calls will be rejected")
		}
		return cfg.WebhookToken, nil
	}
	sm, err := service.NewSecretManagerService(ctx, cfg)
	if err != nil {
		return "", err
	}
	token, err := sm.GetSecret(ctx, cfg.WebhookTokenSecretName)
	if err != nil {
		logger.Error().Err(err).Str("secret", cfg.WebhookTokenSecretName).Msg("Failed to fetch webhook token from Secret Manager")
		return "", err
	}
	return token, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services. See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
