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

	"printful-sync/config"
	"printful-sync/internal/api"
	"printful-sync/internal/broker"
	"printful-sync/internal/printful"
	"printful-sync/internal/reconcile"
	"printful-sync/internal/redisclient"
	"printful-sync/internal/service"
	"printful-sync/internal/store"
	"printful-sync/internal/util"
	"printful-sync/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting printful sync service")

	tp, err := util.InitTracer("printful-sync", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	cacheTTL := time.Duration(cfg.Sync.CacheTTLSeconds) * time.Second
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	ctx := context.Background()
	profileID, err := db.GetDefaultProfileID(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve default shipping profile: %v", err)
	}
	salesChannelID, err := db.GetDefaultSalesChannelID(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve default sales channel: %v", err)
	}

	printfulClient := printful.NewClient(cfg.Printful.BaseURL, cfg.Printful.AccessToken, cfg.Printful.StoreID)
	fetcher := reconcile.NewFetcher(printfulClient, redisClient, cfg.Sync.FetchConcurrency)
	reconciler := reconcile.NewReconciler(profileID, salesChannelID)
	executor := reconcile.NewExecutor(db, cfg.Sync.CreateRetryAttempts)

	lockTTL := time.Duration(cfg.Sync.LockTTLSeconds) * time.Second
	syncService := service.NewSyncService(db, printfulClient, fetcher, reconciler, executor, redisClient, eventPublisher, lockTTL)
	orderService := service.NewOrderService(db, printfulClient, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	syncConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync, cfg.Kafka.ConsumerGroup)
	syncWorker := worker.NewSyncWorker(syncConsumer, syncService)
	go func() {
		if err := syncWorker.Start(workerCtx); err != nil {
			log.Printf("Sync worker error: %v", err)
		}
	}()

	fulfillmentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync, "fulfillment-service-group")
	fulfillmentWorker := worker.NewFulfillmentWorker(fulfillmentConsumer, orderService)
	go func() {
		if err := fulfillmentWorker.Start(workerCtx); err != nil {
			log.Printf("Fulfillment worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(syncService, orderService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	syncWorker.Stop()
	fulfillmentWorker.Stop()

	log.Println("Server exited")
}
