package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/config"
	"github.com/tallyhq/tally-backend/internal/handler"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/repository/postgres"
	"github.com/tallyhq/tally-backend/internal/repository/storage"
	"github.com/tallyhq/tally-backend/internal/service"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	apiTokenRepo := postgres.NewAPITokenRepository(pool)
	teamRepo := postgres.NewTeamRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	recurringRepo := postgres.NewRecurringExpenseRepository(pool)

	// Receipt storage is optional; the API runs without it and the
	// receipt endpoints report 503.
	var receiptStorage storage.ReceiptRepository
	if cfg.S3.AccessKeyID != "" || cfg.S3.Endpoint != "" {
		s3Repo, err := storage.NewS3ReceiptRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptStorage = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt storage enabled")
	} else {
		log.Warn().Msg("Receipt storage not configured, receipt uploads disabled")
	}

	// WebSocket hub
	hub := websocket.NewHub()

	// Initialize services
	provisioningService := service.NewProvisioningService(categoryRepo)
	authService := service.NewAuthService(userRepo, sessionRepo, provisioningService, cfg.SessionTTL)
	apiTokenService := service.NewAPITokenService(apiTokenRepo, userRepo)
	teamService := service.NewTeamService(teamRepo, membershipRepo, userRepo, provisioningService, hub)
	categoryService := service.NewCategoryService(categoryRepo, membershipRepo, hub)
	expenseService := service.NewExpenseService(expenseRepo, categoryRepo, membershipRepo, hub)
	budgetService := service.NewBudgetService(budgetRepo, categoryRepo, membershipRepo, hub)
	recurringService := service.NewRecurringService(recurringRepo, categoryRepo, membershipRepo, hub)
	receiptService := service.NewReceiptService(receiptStorage, expenseRepo, membershipRepo)

	// Initialize auth middleware: session cookie first, bearer API
	// token as fallback.
	sessionAuth := middleware.NewSessionAuthMiddleware(authService, cfg.SecureCookies)
	apiTokenAuth := middleware.NewAPITokenAuthMiddleware(apiTokenService)
	dualAuth := middleware.NewDualAuthMiddleware(sessionAuth, apiTokenAuth)

	// Rate limiting applies to API token traffic only
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.SecureCookies)
	tokenHandler := handler.NewAPITokenHandler(apiTokenService)
	teamHandler := handler.NewTeamHandler(teamService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	budgetHandler := handler.NewBudgetHandler(budgetService)
	recurringHandler := handler.NewRecurringHandler(recurringService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	wsHandler := handler.NewWebSocketHandler(hub, authService, apiTokenService, membershipRepo, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, dualAuth, rateLimiter, authHandler, tokenHandler, teamHandler, categoryHandler, expenseHandler, budgetHandler, recurringHandler, receiptHandler, wsHandler)

	// Expired sessions are swept in the background
	go sessionSweeper(sessionRepo)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// sessionSweeper periodically deletes expired sessions
func sessionSweeper(sessions interface {
	DeleteExpired(ctx context.Context) (int64, error)
}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		deleted, err := sessions.DeleteExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Failed to sweep expired sessions")
			continue
		}
		if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Swept expired sessions")
		}
	}
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
