// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/handlers"
	"github.com/apexchain/apex-backend/internal/metadata"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/middleware"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/wallet"
	"github.com/apexchain/apex-backend/internal/workflow"
)

const Version = "1.0.0"

// Dependencies are the process-wide components built by the caller.
type Dependencies struct {
	Metrics  *metrics.Metrics
	Analyzer analyzer.AuthenticityAnalyzer
	Wallet   *wallet.Session
	Pinner   metadata.Pinner
	// Storage is optional. Without it uploaded images stay inline as data URIs.
	Storage *services.StorageService
}

func Initialize(db *gorm.DB, cfg *config.Config, deps Dependencies) *gin.Engine {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.NewMockAnalyzer(nil)
	}
	if deps.Pinner == nil {
		deps.Pinner = metadata.HashPinner{}
	}
	if deps.Wallet == nil {
		deps.Wallet = wallet.NewSession(nil, cfg.Blockchain.ContractAddress)
	}

	// Initialize services
	mintingService := services.NewMintingService(cfg, deps.Wallet, deps.Pinner, deps.Metrics)
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	productService := services.NewProductService(db, mintingService)
	certificateService := services.NewCertificateService(db)
	shipmentService := services.NewShipmentService(db, productService)
	verificationService := services.NewVerificationService(db, productService, mintingService, deps.Metrics)
	adminService := services.NewAdminService(db)

	manager := workflow.NewManager(workflow.Deps{
		Config:       cfg.Workflow,
		Analyzer:     deps.Analyzer,
		Wallet:       deps.Wallet,
		Minting:      mintingService,
		Certificates: certificateService,
		Storage:      deps.Storage,
		Metrics:      deps.Metrics,
	}, cfg.Workflow.SessionTTL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	registrationHandler := handlers.NewRegistrationHandler(manager)
	productHandler := handlers.NewProductHandler(productService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	shipmentHandler := handlers.NewShipmentHandler(shipmentService)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	walletHandler := handlers.NewWalletHandler(deps.Wallet, cfg.Blockchain)
	toolsHandler := handlers.NewToolsHandler(deps.Analyzer)
	adminHandler := handlers.NewAdminHandler(adminService, mintingService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "healthy"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":   dbStatus,
			"version":  Version,
			"wallet":   deps.Wallet.State(),
			"on_chain": mintingService.OnChain(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))

	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.AWS.LocalUploadDir)
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.PUT("/me", userHandler.UpdateProfile)
			users.DELETE("/me", userHandler.DeleteAccount)
		}

		// Registration workflow
		registrations := v1.Group("/registrations")
		registrations.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleManufacturer))
		{
			registrations.POST("", registrationHandler.Create)
			registrations.GET("/:id", registrationHandler.Get)
			registrations.PUT("/:id/details", registrationHandler.SubmitDetails)
			registrations.POST("/:id/image", middleware.UploadRateLimit(), registrationHandler.AttachImage)
			registrations.POST("/:id/verify", registrationHandler.Verify)
			registrations.POST("/:id/dismiss", registrationHandler.Dismiss)
			registrations.DELETE("/:id", registrationHandler.Delete)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/history", productHandler.GetHistory)
			products.GET("/:id/shipments", shipmentHandler.ListByProduct)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.PUT("/:id/status", middleware.RoleRequired(models.UserRoleManufacturer, models.UserRoleDistributor), productHandler.UpdateStatus)
				protected.POST("/:id/transfer", middleware.RoleRequired(models.UserRoleManufacturer, models.UserRoleDistributor, models.UserRoleRetailer), productHandler.TransferOwnership)
			}
		}

		// Certificate routes
		certificates := v1.Group("/certificates")
		{
			certificates.GET("", certificateHandler.GetCertificates)
			certificates.GET("/:productId", certificateHandler.GetCertificate)

			protected := certificates.Group("")
			protected.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleManufacturer))
			{
				protected.POST("/:productId/recall", certificateHandler.Recall)
				protected.PUT("/:productId/score", certificateHandler.AdjustScore)
			}
		}

		// Shipment routes
		shipments := v1.Group("/shipments")
		shipments.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleManufacturer, models.UserRoleDistributor))
		{
			shipments.POST("", shipmentHandler.CreateShipment)
			shipments.PUT("/:id/status", shipmentHandler.UpdateStatus)
		}

		// Verification routes
		verify := v1.Group("/verify")
		verify.Use(middleware.OptionalAuth(), middleware.VerifyRateLimit())
		{
			verify.GET("/recent", verificationHandler.GetRecent)
			verify.POST("/scan", verificationHandler.Scan)
			verify.POST("/scan-image", verificationHandler.ScanImage)
			verify.POST("/products/:id", middleware.AuthRequired(), verificationHandler.VerifyProduct)
			verify.GET("/:code", verificationHandler.VerifyByCode)
		}

		// Wallet routes
		walletRoutes := v1.Group("/wallet")
		{
			walletRoutes.GET("", walletHandler.GetStatus)
			walletRoutes.GET("/fee", walletHandler.EstimateFee)
			walletRoutes.GET("/balance", walletHandler.GetBalance)

			protected := walletRoutes.Group("")
			protected.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleManufacturer))
			{
				protected.POST("/connect", walletHandler.Connect)
				protected.POST("/disconnect", walletHandler.Disconnect)
				protected.POST("/switch", walletHandler.SwitchNetwork)
			}
		}

		// Analyzer and QR tools
		v1.POST("/analyze", middleware.AuthRequired(), middleware.UploadRateLimit(), toolsHandler.Analyze)
		qr := v1.Group("/qr")
		{
			qr.POST("/encode", toolsHandler.EncodeQR)
			qr.POST("/decode", toolsHandler.DecodeQR)
		}

		// Analytics
		v1.GET("/analytics/overview", adminHandler.GetDashboardStats)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/analytics", adminHandler.GetAnalytics)
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/role", userHandler.UpdateRole)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	logrus.WithField("routes", len(r.Routes())).Debug("Router initialized")

	return r
}
