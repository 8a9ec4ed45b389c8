package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/templeobijnr/payjaro-backend/internal/auth"
	"github.com/templeobijnr/payjaro-backend/internal/database"
	"github.com/templeobijnr/payjaro-backend/internal/orders"
	"github.com/templeobijnr/payjaro-backend/internal/payments"
	"github.com/templeobijnr/payjaro-backend/internal/wallet"
	"github.com/templeobijnr/payjaro-backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// main initializes and runs the commerce API server with graceful
// shutdown support. It sets up all required services, database
// connections, and API routes.
func main() {
	// Secrets and provider keys come from the environment; .env is a
	// development convenience.
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("no .env file found, using environment")
	}

	// Initialize database
	db, err := database.NewDatabase(os.Getenv("DATABASE_DSN"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	jwtSecret := envOr("JWT_SECRET", "payjaro-secret-key")
	internalKey := envOr("INTERNAL_API_KEY", "payjaro-internal-key")

	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register development credentials outside production
	if os.Getenv("ENV") != "production" {
		authService.RegisterAccount("dev-customer-key", auth.Account{
			APISecret: "dev-customer-secret",
			UserID:    1,
			UserType:  auth.RoleCustomer,
		})
		authService.RegisterAccount("dev-entrepreneur-key", auth.Account{
			APISecret:      "dev-entrepreneur-secret",
			UserID:         2,
			UserType:       auth.RoleEntrepreneur,
			EntrepreneurID: 1,
		})
	}

	shippingFee, err := decimal.NewFromString(envOr("SHIPPING_FEE", "500"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Invalid SHIPPING_FEE")
	}
	ordersService := orders.NewService(db, shippingFee)
	ordersHandlers := orders.NewGinHandlers(ordersService)

	paystack := payments.NewPaystack(os.Getenv("PAYSTACK_SECRET_KEY"))
	flutterwave := payments.NewFlutterwave(
		os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		os.Getenv("FLUTTERWAVE_VERIFY_HASH"),
	)
	paymentsService := payments.NewService(db, paystack, flutterwave)
	paymentsHandlers := payments.NewGinHandlers(paymentsService, paystack, flutterwave)

	walletService := wallet.NewService(db, wallet.DefaultPolicy())
	walletHandlers := wallet.NewGinHandlers(walletService)

	// Create and start payout processor
	payoutProcessor := wallet.NewProcessor(walletService.GetDB(), wallet.LoggingRail{})
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go payoutProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, internalKey, authHandlers, ordersHandlers, paymentsHandlers, walletHandlers)

	// Get port from env otherwise it's 8080
	port := envOr("PORT", "8080")

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Webhook routes: Public, authenticated by provider signatures
// - Order and wallet routes: Protected by JWT authentication
// - Internal routes: Protected by the internal key
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	internalKey string,
	authHandlers *auth.GinHandlers,
	ordersHandlers *orders.GinHandlers,
	paymentsHandlers *payments.GinHandlers,
	walletHandlers *wallet.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Webhook routes are public; each handler verifies the
		// provider's signature before touching the ledger.
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/paystack", paymentsHandlers.PaystackWebhookHandler())
			webhooks.POST("/flutterwave", paymentsHandlers.FlutterwaveWebhookHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", ordersHandlers.CreateOrderHandler())
			orderGroup.GET("", ordersHandlers.ListCustomerOrdersHandler())
			orderGroup.GET("/entrepreneur", ordersHandlers.ListEntrepreneurOrdersHandler())
			orderGroup.GET("/supplier", ordersHandlers.ListSupplierOrdersHandler())
			orderGroup.GET("/:order_id", ordersHandlers.GetOrderHandler())
			orderGroup.GET("/:order_id/history", ordersHandlers.GetOrderHistoryHandler())
		}

		// Payment routes
		paymentGroup := v1.Group("/payments")
		paymentGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			paymentGroup.POST("/initiate", paymentsHandlers.InitiatePaymentHandler())
			paymentGroup.GET("/:transaction_id", paymentsHandlers.GetTransactionHandler())
		}

		// Wallet routes
		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			walletGroup.GET("/summary", walletHandlers.SummaryHandler())
			walletGroup.POST("/withdrawals", walletHandlers.RequestWithdrawalHandler())
			walletGroup.GET("/withdrawals", walletHandlers.ListWithdrawalsHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(internalKey))
		{
			internal.POST("/orders/:order_id/status", ordersHandlers.UpdateStatusHandler())
			internal.POST("/withdrawals/:reference_id/finalize", walletHandlers.FinalizePayoutHandler())
		}
	}
}
