package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/repository/cache"
	"github.com/ignite/newsletter/internal/repository/postgres"
	"github.com/ignite/newsletter/internal/service/idempotency"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/sending"
	"github.com/ignite/newsletter/internal/service/subscription"
	"github.com/ignite/newsletter/internal/ses"
	"github.com/ignite/newsletter/internal/storage"
	"github.com/ignite/newsletter/internal/telemetry"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Logging.Level),
		RedactPII: cfg.Logging.RedactPII,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()
	tracer := tp.Tracer("github.com/ignite/newsletter")

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected")

	redisClient := openRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := buildStore(ctx, cfg, db, redisClient, log)
	if err != nil {
		return err
	}

	guardOpts := idempotency.Options{ReplayOnConflict: cfg.Idempotency.ReplayOnConflict}
	if cfg.Idempotency.InFlightLock {
		guardOpts.Locker = distlock.NewFactory(redisClient, db, cfg.Idempotency.LockTTL())
		guardOpts.LockTTL = cfg.Idempotency.LockTTL()
		log.Info("idempotency in-flight lock enabled", "redis", redisClient != nil)
	}
	guard := idempotency.NewGuard(store, log, tracer, guardOpts)

	sender, err := buildSender(ctx, cfg, log)
	if err != nil {
		return err
	}

	subscriptions := postgres.NewSubscriptionRepo(db)
	subs, err := subscription.NewService(subscriptions, sender, cfg.Application.BaseURL, log, tracer)
	if err != nil {
		return err
	}

	var archiver newsletter.Archiver
	var bucketClient api.BucketHeader
	if cfg.Archive.Enabled {
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
		if err != nil {
			return fmt.Errorf("load aws config for archive: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		archiver = storage.NewIssueArchive(s3Client, cfg.Archive.S3Bucket, cfg.Archive.Prefix)
		bucketClient = s3Client
		log.Info("issue archive enabled", "bucket", cfg.Archive.S3Bucket)
	}
	engine := newsletter.NewEngine(subscriptions, sender, log, tracer)
	publisher := newsletter.NewPublisher(engine, archiver, log, tracer)

	var authz auth.Authorizer = auth.Anonymous{}
	if redisClient != nil {
		authz = auth.NewRedisSessions(redisClient, cfg.Auth.CookieName, cfg.Auth.SessionTTL())
	} else {
		log.Warn("redis not configured, admin routes will redirect every request to /login")
	}

	router, err := api.SetupRoutes(api.Deps{
		Log:           log,
		Authorizer:    authz,
		Guard:         guard,
		Publisher:     publisher,
		Subscriptions: subs,
		Health:        api.NewHealthChecker(db, redisClient, bucketClient, cfg.Archive.S3Bucket),
	})
	if err != nil {
		return err
	}
	server := api.NewServer(cfg.Server, router)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	dsn := cfg.URL
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "connect_timeout") {
		dsn += fmt.Sprintf("%sconnect_timeout=%d", sep, cfg.ConnectTimeoutSeconds)
		sep = "&"
	}
	dsn += fmt.Sprintf("%soptions=-c%%20statement_timeout%%3D%d", sep, cfg.StatementTimeoutMs)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSecs) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeoutSeconds)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// openRedis returns nil when Redis is not configured or unreachable.
func openRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.URL == "" {
		log.Info("redis not configured")
		return nil
	}

	var client *redis.Client
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis connection failed, continuing without it", "error", err)
		client.Close()
		return nil
	}
	log.Info("redis connected")
	return client
}

func buildStore(ctx context.Context, cfg *config.Config, db *sql.DB, redisClient *redis.Client, log *logger.Logger) (idempotency.Store, error) {
	var store idempotency.Store
	switch cfg.Idempotency.Backend {
	case "dynamodb":
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
		if err != nil {
			return nil, fmt.Errorf("load aws config for dynamodb: %w", err)
		}
		store = storage.NewDynamoIdempotencyStore(dynamodb.NewFromConfig(awsCfg), cfg.Idempotency.DynamoDBTable)
		log.Info("idempotency store: dynamodb", "table", cfg.Idempotency.DynamoDBTable)
	default:
		store = postgres.NewIdempotencyRepo(db)
		log.Info("idempotency store: postgres")
	}

	if cfg.Idempotency.Cache.Enabled {
		if redisClient == nil {
			log.Warn("idempotency cache enabled but redis is unavailable, caching disabled")
			return store, nil
		}
		store = cache.NewIdempotencyCache(store, redisClient, cfg.Idempotency.CacheTTL(), log)
	}
	return store, nil
}

func buildSender(ctx context.Context, cfg *config.Config, log *logger.Logger) (sending.EmailSender, error) {
	from, err := domain.ParseEmail(cfg.Email.Sender)
	if err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}

	switch cfg.Email.Provider {
	case "ses":
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
			Region:    cfg.SES.Region,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("load aws config for ses: %w", err)
		}
		log.Info("email provider: ses", "region", cfg.SES.Region)
		return ses.NewSenderFromConfig(awsCfg, from, log), nil
	default:
		log.Info("email provider: http", "base_url", cfg.Email.BaseURL)
		return email.NewClient(cfg.Email.BaseURL, from, cfg.Email.AuthorizationToken, cfg.Email.Timeout()), nil
	}
}
