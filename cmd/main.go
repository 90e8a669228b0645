package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"github.com/caldana20/referral-sys/internal/caching"
	"github.com/caldana20/referral-sys/internal/handlers"
	"github.com/caldana20/referral-sys/internal/jobs/background"
	"github.com/caldana20/referral-sys/internal/middleware"
	"github.com/caldana20/referral-sys/internal/repositories"
	"github.com/caldana20/referral-sys/internal/services"
	"github.com/caldana20/referral-sys/pkg/database"
)

const version = "1.0.0"

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret; tokens will not survive restarts")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	storageSvc, err := services.NewMinioStorage(minioEndpoint, minioAccessKey, minioSecretKey, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Tenant resolution configuration
	defaultTenantSlug := os.Getenv("DEFAULT_TENANT_SLUG")
	clientURLBase := os.Getenv("CLIENT_URL_BASE")
	if clientURLBase == "" {
		clientURLBase = "http://localhost:3000"
	}
	senderEmail := os.Getenv("SENDER_EMAIL")
	if senderEmail == "" {
		senderEmail = "no-reply@localhost"
	}

	// Create repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	tenantHostRepo := repositories.NewTenantHostRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	referralRepo := repositories.NewReferralRepo(pool)
	estimateRepo := repositories.NewEstimateRepo(pool)
	rewardRepo := repositories.NewRewardRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Create services
	notificationSvc := services.NewNotificationService(services.NewLogMailer(), senderEmail)
	defer notificationSvc.Close()

	resolver := services.NewTenantResolver(tenantRepo, tenantHostRepo, cacheSvc, defaultTenantSlug)
	authSvc := services.NewAuthService(userRepo, jwtSecret, 24*time.Hour)
	referralSvc := services.NewReferralService(referralRepo, estimateRepo, userRepo, tenantRepo, notificationSvc)
	estimateSvc := services.NewEstimateService(estimateRepo, referralRepo, tenantRepo, userRepo, notificationSvc)
	rewardSvc := services.NewRewardService(rewardRepo)
	userSvc := services.NewUserService(userRepo)
	tenantSvc := services.NewTenantService(pool, tenantRepo, userRepo, tenantHostRepo, storageSvc, cacheSvc, clientURLBase)

	// Create handlers
	authHandlers := handlers.NewAuthHandlers(authSvc)
	referralHandlers := handlers.NewReferralHandlers(referralSvc)
	estimateHandlers := handlers.NewEstimateHandlers(estimateSvc)
	rewardHandlers := handlers.NewRewardHandlers(rewardSvc)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc)
	userHandlers := handlers.NewUserHandlers(userSvc)
	healthHandlers := handlers.NewHealthHandlers(pool)

	// Background jobs
	scheduler, err := background.NewJobScheduler(notificationSvc, resolver)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no tenant required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	// Onboarding endpoints run before any tenant exists
	e.POST("/api/tenants/preview", tenantHandlers.PreviewOnboarding)
	e.POST("/api/tenants/confirm", tenantHandlers.ConfirmOnboarding)
	e.GET("/api/tenants/list-public", tenantHandlers.ListPublicTenants)

	// Everything else is tenant-scoped
	api := e.Group("/api")
	api.Use(middleware.TenantMiddleware(resolver))

	// Public endpoints used by the referral and estimate pages
	api.POST("/auth/login", authHandlers.Login)
	api.POST("/referrals", referralHandlers.CreateReferral)
	api.GET("/referrals/code/:code", referralHandlers.GetReferralByCode)
	api.POST("/estimates", estimateHandlers.SubmitEstimate)
	api.GET("/rewards/active", rewardHandlers.ListActiveRewards)

	// Admin endpoints require a token for the resolved tenant
	adminOnly := []echo.MiddlewareFunc{
		echojwt.WithConfig(middleware.JWTConfig(jwtSecret)),
		middleware.ClaimsContext(),
		middleware.RequireAdmin(),
	}

	api.GET("/auth/me", authHandlers.Me, adminOnly...)

	api.GET("/referrals", referralHandlers.ListReferrals, adminOnly...)
	api.PATCH("/referrals/:id/status", referralHandlers.UpdateReferralStatus, adminOnly...)
	api.POST("/referrals/bulk-delete", referralHandlers.BulkDeleteReferrals, adminOnly...)

	api.GET("/estimates", estimateHandlers.ListEstimates, adminOnly...)
	api.GET("/estimates/:id", estimateHandlers.GetEstimate, adminOnly...)

	api.GET("/rewards", rewardHandlers.ListRewards, adminOnly...)
	api.POST("/rewards", rewardHandlers.CreateReward, adminOnly...)
	api.PATCH("/rewards/:id/toggle", rewardHandlers.SetRewardActive, adminOnly...)
	api.DELETE("/rewards/:id", rewardHandlers.DeleteReward, adminOnly...)

	api.GET("/users", userHandlers.ListUsers, adminOnly...)
	api.POST("/users", userHandlers.CreateUser, adminOnly...)
	api.DELETE("/users/:id", userHandlers.DeleteUser, adminOnly...)

	api.GET("/tenants/me", tenantHandlers.GetSettings, adminOnly...)
	api.PUT("/tenants/settings", tenantHandlers.UpdateSettings, adminOnly...)
	api.POST("/tenants/logo", tenantHandlers.UploadLogo, adminOnly...)
	api.GET("/tenants/hosts", tenantHandlers.ListHosts, adminOnly...)
	api.POST("/tenants/hosts", tenantHandlers.AddHost, adminOnly...)
	api.DELETE("/tenants/hosts/:id", tenantHandlers.RemoveHost, adminOnly...)

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Referral server v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
