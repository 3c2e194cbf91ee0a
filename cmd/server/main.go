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

	"frontdesk-service/config"
	"frontdesk-service/internal/api"
	"frontdesk-service/internal/board"
	"frontdesk-service/internal/broker"
	"frontdesk-service/internal/checkout"
	"frontdesk-service/internal/frontdesk"
	"frontdesk-service/internal/redisclient"
	"frontdesk-service/internal/store"
	"frontdesk-service/internal/util"
	"frontdesk-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting front-desk service")

	tp, err := util.InitTracer("frontdesk-service", cfg.Observ.JaegerEndpoint)
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

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBoard)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	terminalID := uuid.New().String()

	boardStore := board.NewStore()
	controller := board.NewController(boardStore, db, eventPublisher, terminalID)
	aggregator := checkout.NewAggregator(db)
	paymentService := checkout.NewPaymentService(
		db, redisClient, eventPublisher, terminalID,
		time.Duration(cfg.Business.PaymentLockSeconds)*time.Second).
		WithIdempotencyCache(redisClient, time.Duration(cfg.Business.IdempotencySeconds)*time.Second)

	desk := frontdesk.NewOrchestrator(
		boardStore, controller, aggregator, paymentService,
		db, redisClient, eventPublisher, db, terminalID,
		cfg.Business.TipPresets,
		time.Duration(cfg.Business.BoardCacheSeconds)*time.Second)

	ctx := context.Background()
	if _, err := desk.LoadBoard(ctx); err != nil {
		log.Printf("Failed to load board: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	boardConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBoard, cfg.Kafka.ConsumerGroup+"-"+terminalID)
	boardWorker := worker.NewBoardWorker(boardConsumer, boardStore, db, terminalID)
	go func() {
		if err := boardWorker.Start(workerCtx); err != nil {
			log.Printf("Board worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(desk)
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
	boardWorker.Stop()

	log.Println("Server exited")
}
