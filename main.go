package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"offerhub-backend/common/logger"
	"offerhub-backend/common/response"
	"offerhub-backend/controllers"
	"offerhub-backend/database"
	"offerhub-backend/middleware"
	awspkg "offerhub-backend/pkg/aws"
	"offerhub-backend/repository"
	"offerhub-backend/routes"
	"offerhub-backend/sender"
	"offerhub-backend/services"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// --- MongoDB ---
	mongoClient, db, err := database.Connect(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal("MongoDB connection failed", zap.Error(err))
	}

	// --- Redis (optional analytics cache) ---
	var analyticsCache services.AnalyticsCache
	var redisClient interface{ Close() error }
	if cfg.RedisURL != "" {
		rc, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		redisClient = rc
		analyticsCache = database.NewRedisCache(rc)
	}

	// --- AWS clients (uploads, events, metrics) ---
	var uploader awspkg.AssetUploader
	var snsClient awspkg.SNSPublisher
	if cfg.AssetsBucket != "" || cfg.PromotionSNSTopicARN != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		if cfg.AssetsBucket != "" {
			uploader = awspkg.NewS3Uploader(awsCfg, cfg.AssetsBucket)
		}
		if cfg.PromotionSNSTopicARN != "" {
			snsClient = awspkg.NewSNSClient(awsCfg)
		}
	}

	metricsClient, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// --- SMS sender ---
	var sms sender.SMSSender
	if cfg.TwilioAccountSID != "" {
		twilio, err := sender.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		if err != nil {
			log.Fatal("Twilio sender init failed", zap.Error(err))
		}
		sms = twilio
	} else {
		sms = sender.NewLogSender(log)
	}

	// --- Dependency injection ---
	principalRepo := repository.NewMongoPrincipalRepository(db)
	couponRepo := repository.NewMongoCouponRepository(db)
	adRepo := repository.NewMongoAdRepository(db)

	tokenService, err := services.NewTokenService(cfg.RoleSecrets(), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatal("Token service init failed", zap.Error(err))
	}
	authService := services.NewAuthService(principalRepo, tokenService, sms, cfg.OTPTTL, log)
	couponService := services.NewCouponService(couponRepo, snsClient, cfg.PromotionSNSTopicARN, log)
	adService := services.NewAdService(adRepo, analyticsCache, snsClient, cfg.PromotionSNSTopicARN, log)

	authGate := middleware.NewAuthMiddleware(tokenService, principalRepo)
	authController := controllers.NewAuthController(authService, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.SecureCookies)
	couponController := controllers.NewCouponController(couponService, uploader)
	adController := controllers.NewAdController(adService, uploader)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(response.Recovery(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Refresh-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(metricsClient, "offerhub-backend"))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(response.ErrorHandler(log))

	routes.RegisterAuthRoutes(r, authController, authGate)
	routes.RegisterCouponRoutes(r, couponController, authGate)
	routes.RegisterAdRoutes(r, adController, authGate)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "offerhub-backend"})
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("OfferHub backend started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := database.Close(mongoClient); err != nil {
		log.Error("MongoDB close error", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}

	log.Info("OfferHub backend stopped gracefully")
}
