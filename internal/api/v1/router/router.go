package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/replicate"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for usage event fan-out (optional)
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		pub, err := pubsub.NewPublisher(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = pub
	} else {
		logger.Info().Msg("GCP project not configured, usage event fan-out disabled")
	}

	// 5. Initialize Redis client for rate limiting (optional)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	} else {
		logger.Info().Msg("Redis not configured, rate limiting disabled")
	}

	// 6. Select the enhancement provider. The token comes from the
	// environment first, then from Secret Manager when a GCP project is
	// configured. Without a token every call runs against the deterministic
	// simulator.
	var secrets service.SecretManagerService
	if cfg.ReplicateAPIToken == "" && cfg.GCPProjectID != "" {
		sm, smErr := service.NewSecretManagerService(context.Background(), cfg.GCPProjectID)
		if smErr != nil {
			logger.Warn().Err(smErr).Msg("Failed to create Secret Manager client, provider token lookup skipped")
		} else {
			secrets = sm
		}
	}
	replicateToken := resolveProviderToken(context.Background(), cfg.ReplicateAPIToken, secrets, logger)

	var provider replicate.Provider
	if replicateToken != "" {
		provider = replicate.NewClient(replicateToken, cfg.ReplicateBaseURL, replicate.PollPolicy{
			MaxAttempts: cfg.ReplicateMaxPolls,
			Interval:    time.Duration(cfg.ReplicatePollInterval) * time.Second,
		})
		logger.Info().Msg("Using Replicate enhancement provider")
	} else {
		provider = replicate.NewSimulator()
		logger.Warn().Msg("No Replicate API token available, using simulated enhancement provider")
	}

	// 7. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	enhancementRepo := repository.NewEnhancementRepo(pool, logger)

	ledgerSvc := service.NewLedgerService(ledgerRepo, cfg.TrialPeriodDays, logger)
	telemetrySvc := service.NewTelemetryService(usageRepo, publisher, cfg.UsageEventsTopic, logger)
	userSvc := service.NewUserService(userRepo, ledgerSvc, logger)
	imageSvc := service.NewImageService(enhancementRepo, s3Client, cfg.S3Bucket, logger)
	enhanceSvc := service.NewEnhancementService(enhancementRepo, ledgerSvc, telemetrySvc, userRepo, provider, imageSvc, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, ledgerSvc, logger)

	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, ledgerSvc, validate, logger)
	enhancementHandler := handler.NewEnhancementHandler(enhanceSvc, imageSvc, ledgerSvc, validate, logger)
	usageHandler := handler.NewUsageHandler(telemetrySvc, logger)

	// 8. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 9. Create ServeMux router with the /v1 prefix
	mux := http.NewServeMux()
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	enhancementHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	usageHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 10. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	rateLimiter := middleware.GlobalRateLimiter(redisClient)
	return middleware.LoggerMiddleware(rateLimiter(c.Handler(mux))), pool, nil
}

// resolveProviderToken prefers the token from the environment and falls back
// to the one stored in Secret Manager. An empty result selects the simulator.
func resolveProviderToken(ctx context.Context, configured string, secrets service.SecretManagerService, logger zerolog.Logger) string {
	if configured != "" {
		return configured
	}
	if secrets == nil {
		return ""
	}
	token, err := secrets.GetProviderToken(ctx, "replicate")
	if err != nil {
		logger.Warn().Err(err).Msg("No provider token stored in Secret Manager")
		return ""
	}
	return token
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
