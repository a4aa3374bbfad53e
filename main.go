package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/config"
	"github.com/deepaktraders/storefront-backend/controllers"
	"github.com/deepaktraders/storefront-backend/database"
	"github.com/deepaktraders/storefront-backend/logger"
	awsclient "github.com/deepaktraders/storefront-backend/pkg/aws"
	"github.com/deepaktraders/storefront-backend/repository"
	"github.com/deepaktraders/storefront-backend/routes"
	"github.com/deepaktraders/storefront-backend/services"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.AppEnv)
	defer logger.Log.Sync()
	log := logger.Log

	// --- Datastores ---

	if err := database.ConnectMongo(cfg.MongoURL, cfg.MongoDB); err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := database.CloseMongo(); err != nil {
			log.Error("Failed to close MongoDB", zap.Error(err))
		}
	}()
	if err := database.EnsureIndexes(context.Background(), database.DB); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	pg, err := database.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// --- AWS ---

	var imageService *services.ImageService
	var snsClient awsclient.SNSPublisher
	awsCfg, err := awsclient.LoadAWSConfig(context.Background(), cfg.AWSRegion)
	if err != nil {
		log.Warn("AWS config unavailable, images and SNS disabled", zap.Error(err))
		imageService = services.NewImageService(nil, log)
	} else {
		imageService = services.NewImageService(awsclient.NewS3Client(awsCfg, cfg.S3Bucket), log)
		snsClient = awsclient.NewSNSClient(awsCfg)
	}

	// --- Repositories ---

	productRepo := repository.NewProductRepository(database.DB)
	categoryRepo := repository.NewCategoryRepository(database.DB)
	cartRepo := repository.NewCartRepository(database.DB)
	orderRepo := repository.NewOrderRepository(database.DB)
	userRepo := repository.NewUserRepository(pg)
	guestCartRepo := repository.NewGuestCartRepository(redisClient, cfg.CartTTL)
	productCache := repository.NewProductCache(redisClient, 5*time.Minute)

	// --- Services ---

	tokenService := services.NewTokenService(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, tokenService, log)

	productService := services.NewProductService(productRepo, categoryRepo, productCache, imageService, log)
	categoryService := services.NewCategoryService(categoryRepo, productRepo, imageService, log)

	cartWriter := services.NewRemoteCartWriter(cartRepo, cfg.CartWriteDelay, log)
	cartService := services.NewCartService(guestCartRepo, cartRepo, cartWriter, log)

	events := services.NewOrderEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, snsClient, cfg.SNSTopicArn, log)
	defer events.Close()

	verifier := services.NewSignatureVerifier(cfg.RazorpayKeySecret)
	orderService := services.NewOrderService(orderRepo, productRepo, verifier, imageService, events, log)
	gateway := services.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	paymentService := services.NewPaymentService(orderService, orderRepo, gateway, cfg.RazorpayKeyID, log)

	// --- HTTP ---

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	routes.Register(r, routes.Controllers{
		Auth:     controllers.NewAuthController(authService),
		Product:  controllers.NewProductController(productService, imageService),
		Category: controllers.NewCategoryController(categoryService),
		Cart:     controllers.NewCartController(cartService),
		Order:    controllers.NewOrderController(orderService),
		Payment:  controllers.NewPaymentController(paymentService, orderService, cartService, log),
	}, tokenService, cfg.CORSOrigins)

	// --- Background workers ---

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go orderService.RunJanitor(janitorCtx, cfg.OrderSweepInterval, cfg.OrderSweepAge)

	// --- Serve ---

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Storefront backend starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down storefront backend...")

	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Pending debounced cart writes must land before the process exits.
	cartWriter.Flush()

	log.Info("Storefront backend stopped gracefully")
}
