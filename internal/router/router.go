// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/handlers"
	"github.com/beatmarket/beatmarket-backend/internal/middleware"
	"github.com/beatmarket/beatmarket-backend/internal/models"
	"github.com/beatmarket/beatmarket-backend/internal/services"
	"github.com/beatmarket/beatmarket-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db)
	walletService := services.NewWalletService(db)
	paymentService := services.NewPaymentService(cfg)

	authService := services.NewAuthService(db, cfg)
	beatService := services.NewBeatService(db)
	purchaseService := services.NewPurchaseService(db, walletService, paymentService, notificationService, cfg)
	releaseService := services.NewReleaseService(db, walletService, notificationService, cfg)
	disputeService := services.NewDisputeService(db, walletService, paymentService, notificationService)
	withdrawalService := services.NewWithdrawalService(db, walletService, notificationService, cfg)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	beatHandler := handlers.NewBeatHandler(beatService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, disputeService)
	walletHandler := handlers.NewWalletHandler(walletService, notificationService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	adminHandler := handlers.NewAdminHandler(adminService, beatService, purchaseService, disputeService, withdrawalService)
	systemHandler := handlers.NewSystemHandler(releaseService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public catalog
		beats := v1.Group("/beats")
		{
			beats.GET("", middleware.OptionalAuth(), beatHandler.ListBeats)
			beats.GET("/:id", middleware.OptionalAuth(), beatHandler.GetBeat)
		}
		v1.GET("/licenses", beatHandler.ListLicenses)

		// Producer routes
		producer := v1.Group("/producer")
		producer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleProducer, models.UserRoleAdmin))
		{
			producer.POST("/beats", beatHandler.CreateBeat)
			producer.GET("/beats", beatHandler.ProducerBeats)
			producer.POST("/beats/:id/licenses", beatHandler.AttachLicense)
			producer.DELETE("/beats/:id/licenses/:licenseId", beatHandler.DetachLicense)
			producer.GET("/sales", purchaseHandler.ProducerSales)
			producer.POST("/withdrawals", withdrawalHandler.RequestWithdrawal)
			producer.GET("/withdrawals", withdrawalHandler.ProducerWithdrawals)
		}

		// Buyer routes
		buyer := v1.Group("/buyer")
		buyer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleBuyer, models.UserRoleAdmin))
		{
			buyer.POST("/purchase", middleware.PurchaseRateLimit(), purchaseHandler.Purchase)
			buyer.GET("/purchases", purchaseHandler.BuyerPurchases)
			buyer.GET("/purchases/:id", purchaseHandler.GetPurchase)
			buyer.POST("/purchases/:id/dispute", purchaseHandler.FileDispute)
		}

		// Wallet and notifications (any authenticated user)
		authed := v1.Group("")
		authed.Use(middleware.AuthRequired())
		{
			authed.GET("/wallet/balance", walletHandler.GetBalance)
			authed.GET("/wallet/transactions", walletHandler.GetTransactions)
			authed.GET("/notifications", walletHandler.GetNotifications)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			admin.GET("/users", adminHandler.GetUsers)
			admin.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)

			admin.PATCH("/beats/:id", adminHandler.ModerateBeat)

			admin.GET("/purchases", adminHandler.GetPurchases)
			admin.POST("/purchases/:id/refund", adminHandler.RefundPurchase)

			admin.GET("/disputes", adminHandler.GetDisputes)
			admin.GET("/disputes/:id", adminHandler.GetDispute)
			admin.PATCH("/disputes/:id", adminHandler.UpdateDispute)

			admin.GET("/withdrawals", adminHandler.GetWithdrawals)
			admin.PATCH("/withdrawals/:id", adminHandler.UpdateWithdrawal)
		}

		// System routes (settlement operations)
		system := v1.Group("/system")
		system.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			system.POST("/release-funds", systemHandler.ReleaseFunds)
			system.GET("/pending-releases", systemHandler.PendingReleases)
		}
	}

	return r
}
