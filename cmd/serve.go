package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/database"
	"github.com/ege-manyasli/manyasligida/internal/handler"
	"github.com/ege-manyasli/manyasligida/internal/handler/middleware"
	"github.com/ege-manyasli/manyasligida/internal/repository/postgres"
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/ege-manyasli/manyasligida/pkg/cartstore"
	"github.com/ege-manyasli/manyasligida/pkg/email"
	"github.com/ege-manyasli/manyasligida/pkg/hash"
	"github.com/ege-manyasli/manyasligida/pkg/jwt"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the session cleanup loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Error("error closing database connection")
		}
	}()
	logrus.Info("database connection established")

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
	}

	redisClient, err := initRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Error("error closing redis connection")
		}
	}()
	logrus.Info("redis connection established")

	validate := validator.NewValidator()

	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	codeRepo := postgres.NewVerificationCodeRepository(db)

	// Typed nil would defeat the nil checks in the services.
	var verifier service.AssertionVerifier
	var issuer service.AssertionIssuer
	if assertions := newAssertionService(cfg); assertions != nil {
		verifier, issuer = assertions, assertions
	}

	mailer, err := newEmailService(ctx, cfg)
	if err != nil {
		return err
	}

	codec := hash.NewCodec(hash.DefaultConfig, []byte(cfg.Auth.LegacyHashKey))
	sessions := service.NewSessionManager(sessionRepo, userRepo, verifier, &cfg.Session)
	codes := service.NewVerificationService(codeRepo, &cfg.Verification)
	authService := service.NewAuthService(userRepo, sessions, codes, codec, issuer, mailer, validate, cfg.Auth)

	carts := cartstore.NewRedisStore(redisClient, cfg.Cart.TTL)
	cartService := service.NewCartService(carts, cfg.Cart.LockStripes)

	cookies := handler.Cookies{
		Session:    cfg.Session.CookieName,
		SessionTTL: cfg.Session.TTL,
		Remember:   cfg.Session.RememberCookie,
		Visitor:    cfg.Cart.CookieName,
		VisitorTTL: cfg.Cart.TTL,
		Secure:     cfg.Server.IsProduction(),
	}

	authHandler := handler.NewAuthHandler(authService, validate, cookies)
	sessionHandler := handler.NewSessionHandler(sessions, cookies)
	passwordHandler := handler.NewPasswordHandler(authService, validate)
	cartHandler := handler.NewCartHandler(cartService, validate, cookies)
	healthHandler := handler.NewHealthHandler(db, handler.PingFunc(carts.Ping))

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Auth",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware(cfg.Server.AllowOrigins))

	sessionMiddleware := middleware.SessionMiddleware(sessions, middleware.SessionCookies{
		Session:  cookies.Session,
		Remember: cookies.Remember,
		Secure:   cookies.Secure,
	})

	handler.SetupRoutes(
		app,
		authHandler,
		sessionHandler,
		passwordHandler,
		cartHandler,
		healthHandler,
		sessionMiddleware,
	)

	go sessions.RunCleanup(ctx, cfg.Session.CleanupInterval)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logrus.WithFields(logrus.Fields{"addr": addr, "environment": cfg.Server.Environment}).Info("server starting")
		if err := app.Listen(addr); err != nil {
			logrus.WithError(err).Error("server failed to start")
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server forced to shutdown")
	}

	logrus.Info("server stopped")
	return nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logrus.WithError(closeErr).Error("error closing redis after ping failure")
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// newAssertionService returns nil when the remember-me fallback is off or
// no secret is configured.
func newAssertionService(cfg *config.Config) *jwt.AssertionService {
	if !cfg.Session.AssertionFallback {
		logrus.Info("remember-me assertions disabled")
		return nil
	}

	assertions, err := jwt.NewAssertionService(cfg.Session.RememberSecret, cfg.Session.RememberTTL, cfg.Session.Issuer)
	if err != nil {
		logrus.WithError(err).Warn("remember-me assertions disabled")
		return nil
	}
	return assertions
}

func newEmailService(ctx context.Context, cfg *config.Config) (email.EmailService, error) {
	if !cfg.Email.Enabled {
		logrus.Info("email disabled, messages are logged only (set EMAIL_ENABLED=true to enable)")
		return email.NewLogEmailService(), nil
	}

	emailConfig := &email.EmailConfig{
		APIKey:    cfg.Email.APIKey,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		AWSRegion: cfg.Email.AWSRegion,
	}

	switch cfg.Email.Provider {
	case "resend":
		return email.NewResendEmailService(emailConfig)
	case "ses":
		return email.NewSESEmailService(ctx, emailConfig)
	case "log":
		return email.NewLogEmailService(), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Email.Provider)
	}
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()}).Warn("unhandled request error")

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
