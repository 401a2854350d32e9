package app

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"vehiclerental/internal/config"
	"vehiclerental/internal/handler"
	"vehiclerental/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RentalHandler  *handler.RentalHandler
	PaymentHandler *handler.PaymentHandler
	AdminHandler   *handler.AdminHandler
	UnitHandler    *handler.UnitHandler
	UserHandler    *handler.UserHandler
	Auth           config.AuthConfig
	AllowedOrigins []string
	RedisClient    redis.Cmdable // nil disables idempotency replay
	NewRelicApp    *newrelic.Application
	Logger         *logrus.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	handler.RegisterValidators()

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    deps.Logger.Writer(),
		SkipPaths: []string{"/health"},
	}))
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")

	// Gateway notifications authenticate by signature, not by token.
	v1.POST("/payments/notifications/:provider", deps.PaymentHandler.Notification)

	authed := v1.Group("")
	authed.Use(middleware.Auth(deps.Auth.JWTSecret, deps.Auth.Issuer))
	authed.Use(middleware.TransactionAttributes())
	authed.Use(middleware.Idempotency(deps.RedisClient, deps.Logger))
	{
		// User routes.
		authed.GET("/users/me", deps.UserHandler.Me)

		// Rental routes.
		rentals := authed.Group("/rentals")
		{
			rentals.POST("", deps.RentalHandler.CreateRental)
			rentals.GET("", deps.RentalHandler.ListMyRentals)
			rentals.GET("/:id", deps.RentalHandler.GetRental)
			rentals.POST("/:id/cancel", deps.RentalHandler.CancelRental)

			// Payment routes.
			rentals.GET("/:id/payment", deps.PaymentHandler.GetPayment)
			rentals.POST("/:id/payment/reconcile", deps.PaymentHandler.Reconcile)
			rentals.POST("/:id/payment/signal", deps.PaymentHandler.Signal)
			rentals.DELETE("/:id/payment/signal", deps.PaymentHandler.CancelSignal)
		}

		// Unit routes.
		authed.GET("/units/:id/availability", deps.UnitHandler.Availability)

		// Admin routes.
		admin := authed.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/rentals", deps.AdminHandler.ListRentals)
			admin.PUT("/rentals/:id/approve", deps.AdminHandler.Approve)
			admin.PUT("/rentals/:id/reject", deps.AdminHandler.Reject)
			admin.PUT("/rentals/:id/complete", deps.AdminHandler.Complete)

			admin.PUT("/units/:id/maintenance", deps.UnitHandler.SetMaintenance)

			admin.GET("/users/:id", deps.UserHandler.GetUser)
			admin.PUT("/users/:id/documents/:doc", deps.UserHandler.VerifyDocument)
			admin.PUT("/users/:id/verify", deps.UserHandler.VerifyUser)
			admin.POST("/users/bulk-verify", deps.UserHandler.BulkVerify)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", "Idempotency-Key")

	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}
