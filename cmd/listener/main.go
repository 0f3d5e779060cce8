// The listener consumes notification events from Kafka and fans them out
// into the feed store. It runs alongside the HTTP server and shares its
// configuration; scaling out means adding listeners to the consumer group.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/external"
	"feedhub/internal/kafka"
	"feedhub/internal/logging"
	"feedhub/internal/models"
	"feedhub/internal/services"
	"feedhub/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	logging.Init()

	log.Println("Starting feedhub listener...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.CatalogFile != "" {
		if err := models.LoadCatalog(cfg.CatalogFile); err != nil {
			log.Fatalf("Failed to load catalog %s: %v", cfg.CatalogFile, err)
		}
	}

	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	cancelInit()
	defer mongoDB.Close(context.Background())

	services.InitMetrics()

	globalFeed, err := models.NewEntity(cfg.GlobalFeedID, models.EntityUser)
	if err != nil {
		log.Fatalf("Invalid global feed id: %v", err)
	}

	var serviceToken external.TokenProvider
	if cfg.ServiceJWTSecret != "" {
		serviceJWT, err := auth.NewServiceJWT(cfg.ServiceJWTSecret, 0)
		if err != nil {
			log.Fatalf("Failed to initialize service JWT: %v", err)
		}
		serviceToken = func() (string, error) { return serviceJWT.Generate("feedhub-listener") }
	}

	workspaceClient := external.NewWorkspaceClient(cfg.WorkspaceURL, serviceToken)
	jobsClient := external.NewJobsClient(cfg.JobsURL, serviceToken)

	fanout := services.NewFanoutService(globalFeed)
	fanout.RegisterExpander(services.SourceWorkspace, workspaceClient)
	fanout.RegisterExpander(services.SourceNarrative, workspaceClient)
	fanout.RegisterExpander(services.SourceJobs, jobsClient)

	// Push events still flow when Redis is configured, so web clients see
	// Kafka-ingested notifications live too.
	var publisher services.FanoutPublisher
	var pubsub *services.PubSubService
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable, push events disabled: %v", err)
		} else {
			defer redisService.Close()
			pubsub = services.NewPubSubService(redisService)
			publisher = pubsub
		}
	}

	store := services.NewActivityStorageService(mongoDB)
	notificationService := services.NewNotificationService(store, fanout, publisher, services.SystemClock{}, cfg.LifespanDays)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopics, cfg.KafkaGroupID, notificationService)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down listener...")
		cancel()
		consumer.Close()
	}()

	log.Printf("Consuming topics %v from %v as group %s", cfg.KafkaTopics, cfg.KafkaBrokers, cfg.KafkaGroupID)
	consumer.Start(ctx)
}
