package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/external"
	"feedhub/internal/handlers"
	"feedhub/internal/jobs"
	"feedhub/internal/logging"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/services"
	"feedhub/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("Starting feedhub server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Configuration loaded (port: %s, global feed: %s)", cfg.Port, cfg.GlobalFeedID)

	// Verb and level extensions from the optional catalog file
	if cfg.CatalogFile != "" {
		if err := models.LoadCatalog(cfg.CatalogFile); err != nil {
			log.Fatalf("Failed to load catalog %s: %v", cfg.CatalogFile, err)
		}
		log.Printf("Catalog extensions loaded from %s", cfg.CatalogFile)
	}

	// MongoDB
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
	log.Println("MongoDB connected and indexed")

	// Redis (optional: live push degrades gracefully without it)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable, live push disabled: %v", err)
			redisService = nil
		}
	} else {
		log.Println("REDIS_URL not set, live push disabled")
	}

	services.InitMetrics()

	globalFeed, err := models.NewEntity(cfg.GlobalFeedID, models.EntityUser)
	if err != nil {
		log.Fatalf("Invalid global feed id: %v", err)
	}

	// Service token authority for trusted platform callers
	var serviceJWT *auth.ServiceJWT
	if cfg.ServiceJWTSecret != "" {
		serviceJWT, err = auth.NewServiceJWT(cfg.ServiceJWTSecret, 0)
		if err != nil {
			log.Fatalf("Failed to initialize service JWT: %v", err)
		}
	} else {
		log.Fatal("SERVICE_JWT_SECRET is required")
	}
	serviceToken := func() (string, error) { return serviceJWT.Generate("feedhub") }

	// External collaborator clients
	authClient := external.NewAuthClient(cfg.AuthURL, serviceToken)
	workspaceClient := external.NewWorkspaceClient(cfg.WorkspaceURL, serviceToken)
	groupsClient := external.NewGroupsClient(cfg.GroupsURL, serviceToken)
	jobsClient := external.NewJobsClient(cfg.JobsURL, serviceToken)
	catalogClient := external.NewCatalogClient(cfg.CatalogURL, serviceToken)

	resolver := services.NewResolverService(map[models.EntityType]services.NameResolver{
		models.EntityUser:      authClient,
		models.EntityAdmin:     authClient,
		models.EntityWorkspace: workspaceClient,
		models.EntityNarrative: workspaceClient,
		models.EntityGroup:     groupsClient,
		models.EntityJob:       jobsClient,
		models.EntityApp:       catalogClient,
		models.EntityService:   catalogClient,
	})

	// Core services
	clock := services.SystemClock{}
	store := services.NewActivityStorageService(mongoDB)
	fanout := services.NewFanoutService(globalFeed)
	fanout.RegisterExpander(services.SourceWorkspace, workspaceClient)
	fanout.RegisterExpander(services.SourceNarrative, workspaceClient)
	fanout.RegisterExpander(services.SourceJobs, jobsClient)

	var pubsub *services.PubSubService
	var publisher services.FanoutPublisher
	if redisService != nil {
		pubsub = services.NewPubSubService(redisService)
		publisher = pubsub
	}

	feedService := services.NewFeedService(store, resolver, clock)
	notificationService := services.NewNotificationService(store, fanout, publisher, clock, cfg.LifespanDays)

	// Live push plumbing
	connManager := services.NewConnectionManager()
	wsHandler := handlers.NewWebSocketHandler(connManager, feedService)
	if pubsub != nil {
		pubsub.OnFanout(wsHandler.Deliver)
		if err := pubsub.Start(); err != nil {
			log.Printf("Pub/sub start failed, live push disabled: %v", err)
		}
	}

	// Retention sweep
	var scheduler *jobs.Scheduler
	if cfg.SweepEnabled {
		scheduler, err = jobs.NewScheduler()
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		sweep := jobs.NewRetentionSweepJob(mongoDB, cfg.RetentionDays)
		if err := scheduler.Register("retention-sweep", cfg.SweepCron, sweep); err != nil {
			log.Fatalf("Failed to register retention sweep: %v", err)
		}
		scheduler.Start()
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "feedhub v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("feedhub")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
	}))

	// Handlers
	healthHandler := handlers.NewHealthHandler(connManager)
	feedHandler := handlers.NewFeedHandler(feedService, globalFeed, cfg)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(feedService, notificationService, globalFeed, cfg)

	userAuth := middleware.UserAuthMiddleware(authClient, cfg)
	serviceAuth := middleware.ServiceAuthMiddleware(serviceJWT)
	adminGate := middleware.AdminMiddleware()

	// Routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api/V1")
	api.Get("/notifications", userAuth, feedHandler.GetNotifications)
	api.Get("/notifications/global", feedHandler.GetGlobalNotifications)
	api.Get("/notification/:id", userAuth, feedHandler.GetNotification)
	api.Post("/notifications/see", userAuth, feedHandler.MarkSeen)
	api.Post("/notifications/unsee", userAuth, feedHandler.MarkUnseen)
	api.Post("/notification", serviceAuth, notificationHandler.Create)
	api.Post("/notifications/expire", serviceAuth, notificationHandler.Expire)

	admin := app.Group("/admin/api/V1", userAuth, adminGate)
	admin.Post("/notification/global", adminHandler.CreateGlobal)
	admin.Get("/notifications/global", adminHandler.GetGlobal)
	admin.Post("/notifications/expire", adminHandler.Expire)

	// WebSocket feed subscription
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Use("/ws/feed", userAuth)
	app.Get("/ws/feed", websocket.New(wsHandler.Handle))

	log.Printf("Server listening on port %s", cfg.Port)
	log.Printf("Feed endpoint: http://localhost:%s/api/V1/notifications", cfg.Port)
	log.Printf("Live feed: ws://localhost:%s/ws/feed", cfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")

		if scheduler != nil {
			if err := scheduler.Stop(); err != nil {
				log.Printf("Error stopping scheduler: %v", err)
			}
		}
		if pubsub != nil {
			pubsub.Stop()
		}
		if redisService != nil {
			redisService.Close()
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
