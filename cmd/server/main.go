package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/docstore"
	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/order"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/whatsapp"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.RunMigrations {
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}
	logger.Info("Database connected")

	ctx := context.Background()

	docs, err := docstore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := docs.Close(context.Background()); err != nil {
			logger.Warn("Error closing MongoDB", zap.Error(err))
		}
	}()
	if err := docs.CreateIndexes(ctx); err != nil {
		logger.Warn("Failed to create document indexes", zap.Error(err))
	}
	logger.Info("MongoDB connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	redisClient = redisClient.WithCartTTL(cfg.Business.CartTTL)
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(broker.NewBreakerPublisher(producer, broker.DefaultBreakerSettings()))
	logger.Info("Kafka producer initialized")

	links, err := whatsapp.NewLinkBuilder(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Phone)
	if err != nil {
		logger.Fatal("Invalid WhatsApp configuration", zap.Error(err))
	}

	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize admin auth", zap.Error(err))
	}

	feed := live.NewFeed()

	carts := cart.NewService(redisClient, cart.NewHub(feed))
	catalogService := service.NewCatalogService(docs, redisClient, cfg.Business.ProductCacheTTL, cfg.Business.CatalogPageSize)
	checkoutService := service.NewCheckoutService(
		db, eventPublisher, redisClient, redisClient, carts, catalogService, links,
		order.NewBuilder(cfg.WhatsApp.StoreName),
		service.CheckoutOptions{
			LockTTL:        cfg.Business.CheckoutLockTTL,
			IdempotencyTTL: cfg.Business.IdempotencyTTL,
			ClearCart:      cfg.Business.ClearCartOnCheckout,
		},
	)
	contentService := service.NewContentService(docs, docs)
	orderAdmin := service.NewOrderAdminService(db, eventPublisher, cfg.Business.OrdersPageSize)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	group := cfg.Kafka.InstanceGroup(instanceID())
	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, group)
	orderWorker := worker.NewOrderFeedWorker(orderConsumer, db, feed)
	logger.Info("Order feed consumer initialized", zap.String("group", group))
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			logger.Error("Order feed worker error", zap.Error(err))
		}
	}()

	catalogWatcher := worker.NewCatalogWatcher(docs, redisClient, feed, models.CategoryMattress, models.CategoryPillow)
	if err := catalogWatcher.Start(workerCtx); err != nil {
		// standalone mongod has no change streams; listings still work, just not live
		logger.Warn("Catalog watcher disabled", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(api.Deps{
		Carts:    carts,
		Checkout: checkoutService,
		Catalog:  catalogService,
		Content:  contentService,
		Orders:   orderAdmin,
		Auth:     authenticator,
		Feed:     feed,
		Checks: map[string]func(context.Context) error{
			"postgres": db.Ping,
			"mongo":    docs.Ping,
			"redis":    redisClient.Ping,
		},
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	catalogWatcher.Stop()
	if err := orderWorker.Stop(); err != nil {
		logger.Warn("Error stopping order feed worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newAuthenticator prefers a bcrypt hash; a plaintext password is hashed at startup
func newAuthenticator(cfg *config.Config) (*auth.Authenticator, error) {
	admin := cfg.Admin
	hash := admin.PasswordHash
	if hash == "" && admin.Password != "" {
		var err error
		if hash, err = auth.HashPassword(admin.Password); err != nil {
			return nil, err
		}
	}
	if hash == "" {
		util.GetLogger().Warn("No admin password configured, back-office login is disabled")
	}

	secret := admin.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		// tokens do not survive a restart
		secret = uuid.NewString() + uuid.NewString()
		util.GetLogger().Warn("ADMIN_JWT_SECRET not set, using a per-process signing secret")
	}
	return auth.NewAuthenticator(admin.Username, hash, secret, admin.TokenTTL)
}

// instanceID names this process for its private order-feed consumer group
func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}
