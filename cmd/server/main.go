package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"newsletterdispatch/config"
	_ "newsletterdispatch/docs"
	"newsletterdispatch/internal/adapters/auth"
	"newsletterdispatch/internal/adapters/email"
	"newsletterdispatch/internal/adapters/lock"
	httpDelivery "newsletterdispatch/internal/delivery/http"
	"newsletterdispatch/internal/delivery/http/controllers"
	"newsletterdispatch/internal/delivery/http/middleware"
	"newsletterdispatch/internal/dispatch"
	"newsletterdispatch/internal/repository/postgres"
	"newsletterdispatch/internal/scheduler"
	"newsletterdispatch/internal/services"
)

const sweepLockKey = "newsletter:scheduled-sweep"

// @title Newsletter Dispatch API
// @version 1.0
// @description Newsletter campaign submission, scheduling and one-click unsubscribe.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Admin token. Format: Bearer {token}
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	pingCancel()

	redisClient := connectRedis(cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Adapters
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKey,
			SecretAccessKey: cfg.Email.AWSSecretKey,
		},
		SMTP: email.SMTPConfig{
			URL:  cfg.Email.SMTPURL,
			User: cfg.Email.SMTPUser,
			Pass: cfg.Email.SMTPPass,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	renderer, err := email.NewNewsletterRenderer()
	if err != nil {
		logger.Error("failed to parse newsletter template", "err", err)
		os.Exit(1)
	}
	inliner := email.NewImageInliner(cfg.UploadsDir, cfg.UploadsURLPrefix, cfg.PublicBaseURL, logger)
	tokens := auth.NewUnsubscribeTokens(cfg.UnsubscribeSecret, cfg.PublicBaseURL)
	verifier := auth.NewJWTVerifier(cfg.AdminTokenSecret)

	// Repositories
	campaignRepo := postgres.NewCampaignRepository(db)
	subscriberRepo := postgres.NewSubscriberRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	guestRepo := postgres.NewEventRegistrationRepository(db)

	dispatcher := dispatch.New(mailer, campaignRepo, logger, dispatch.DefaultOptions())
	dispatcher.Start()

	newsletterService := services.NewNewsletterService(services.NewsletterDeps{
		Templates:   templateRepo,
		Recipients:  services.NewRecipientDirectory(subscriberRepo, guestRepo),
		Ledger:      campaignRepo,
		Subscribers: subscriberRepo,
		Queue:       dispatcher,
		Inliner:     inliner,
		Renderer:    renderer,
		Tokens:      tokens,
		Logger:      logger,
		StaleAfter:  cfg.RecoveryStaleAfter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepLock := lock.New(redisClient, db, sweepLockKey, cfg.SchedulerInterval)
	sweeper := scheduler.NewSweeper(newsletterService, sweepLock, cfg.SchedulerInterval, logger)
	if cfg.RecoverAbandoned {
		sweeper.WithRecovery(newsletterService)
	}
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	newsletterController := controllers.NewNewsletterController(logger, newsletterService)
	mux := httpDelivery.NewRouter(newsletterController, verifier, logger)
	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, mux))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment, "email_provider", cfg.Email.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	cancel()
	<-sweepDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	dispatcher.Close()

	logger.Info("server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// sweep lock then falls back to a Postgres advisory lock.
func connectRedis(url string, logger *slog.Logger) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, using postgres advisory lock for scheduler")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using postgres advisory lock for scheduler", "err", err)
		client.Close()
		return nil
	}
	return client
}
