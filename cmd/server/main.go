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

	"catalog-service/config"
	"catalog-service/internal/api"
	"catalog-service/internal/broker"
	"catalog-service/internal/imagecheck"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"
	"catalog-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, "catalog-service"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting catalog service", zap.String("store", cfg.Store.Driver))

	tp, err := util.InitTracer("catalog-service", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
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

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := store.Open(startCtx, store.Options{
		Driver:       cfg.Store.Driver,
		MongoURI:     cfg.Store.MongoURI,
		DatabaseName: cfg.Store.DatabaseName,
		DatabaseURL:  cfg.Store.DatabaseURL,
	})
	startCancel()
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Document store connected")

	var idempotency service.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		idempotency = redisClient
		logger.Info("Redis connected")
	}

	var publisher service.EventPublisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalogEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicCatalogEvents))
	}

	verifier := imagecheck.NewVerifier(nil, cfg.Images.HeadTimeout, cfg.Images.Concurrency)

	catalogService := service.NewCatalogService(db, verifier, publisher, service.CatalogOptions{
		VerifyOnCreate:  cfg.Images.VerifyOnCreate,
		DefaultCategory: cfg.Business.DefaultCategory,
	})
	orderService := service.NewOrderService(db, idempotency, cfg.Business.IdempotencyTTL, publisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var imageWorker *worker.ImageWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalogEvents, cfg.Kafka.ConsumerGroup)
		imageWorker = worker.NewImageWorker(consumer, catalogService)
		go func() {
			if err := imageWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Image worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, orderService, db)
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
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if imageWorker != nil {
		if err := imageWorker.Stop(); err != nil {
			logger.Warn("Error stopping image worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
