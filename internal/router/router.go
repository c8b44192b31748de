// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/audio"
	"github.com/soundbridge/backend/internal/config"
	"github.com/soundbridge/backend/internal/events"
	"github.com/soundbridge/backend/internal/fingerprint"
	"github.com/soundbridge/backend/internal/handlers"
	"github.com/soundbridge/backend/internal/middleware"
	"github.com/soundbridge/backend/internal/rules"
	"github.com/soundbridge/backend/internal/services"
	"github.com/soundbridge/backend/internal/utils"
	"github.com/soundbridge/backend/internal/validation"
)

func Initialize(db *gorm.DB, cfg *config.Config, publisher *events.Publisher) (*gin.Engine, error) {
	// Initialize services
	catalog := rules.DefaultCatalog()
	extractor := audio.NewExtractor()
	generator := fingerprint.NewGenerator()
	engine := validation.NewEngine(catalog, extractor)

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	copyrightService := services.NewCopyrightService(db, generator, publisher)
	caseService := services.NewCaseService(db)
	limiter := services.NewUploadLimiter(catalog)
	uploadService := services.NewUploadService(db, engine, extractor, storageService, copyrightService, limiter)
	authService := services.NewAuthService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(db, catalog, uploadService, cfg.Upload.MaxMemory)
	copyrightHandler := handlers.NewCopyrightHandler(caseService)
	adminHandler := handlers.NewAdminHandler(db, copyrightService, storageService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
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

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Upload routes. The rule catalog is public: anonymous callers
		// see the free-tier limits.
		uploads := v1.Group("/uploads")
		{
			uploads.GET("/rules", middleware.OptionalAuth(), uploadHandler.GetRules)

			authed := uploads.Group("")
			authed.Use(middleware.AuthRequired())
			{
				authed.POST("/validate", uploadHandler.ValidateUpload)
				authed.POST("", middleware.UploadRateLimit(), uploadHandler.Upload)
				authed.GET("/:id/progress", uploadHandler.GetProgress)
				authed.DELETE("/:id/progress", uploadHandler.CancelUpload)
			}
		}

		// Copyright case routes
		copyright := v1.Group("/copyright")
		{
			copyright.POST("/reports", middleware.AuthRequired(), middleware.ReportRateLimit(), copyrightHandler.SubmitReport)
			copyright.GET("/reports", middleware.AuthRequired(), middleware.AdminRequired(), copyrightHandler.ListReports)

			// DMCA intake is open to unauthenticated rights holders.
			copyright.POST("/dmca", middleware.ReportRateLimit(), copyrightHandler.SubmitDMCA)
			copyright.GET("/dmca", middleware.AuthRequired(), middleware.AdminRequired(), copyrightHandler.ListDMCA)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/copyright/records", adminHandler.ListProtectionRecords)
			admin.PUT("/copyright/records/:trackId", adminHandler.UpdateProtectionStatus)
			admin.GET("/copyright/records/:trackId/audio", adminHandler.GetTrackAudioURL)
			admin.GET("/copyright/stats", adminHandler.GetStats)
			admin.GET("/copyright/settings", adminHandler.GetSettings)
			admin.PUT("/copyright/settings", adminHandler.UpdateSettings)
			admin.POST("/copyright/allowlist", adminHandler.AddAllowlistEntry)
			admin.DELETE("/copyright/allowlist/:id", adminHandler.RemoveAllowlistEntry)
			admin.POST("/copyright/denylist", adminHandler.AddDenylistEntry)
			admin.DELETE("/copyright/denylist/:id", adminHandler.RemoveDenylistEntry)
		}
	}

	return r, nil
}
