package main

import (
	"log"

	"github.com/cdc-hr/assessment-engine/internal/cache"
	"github.com/cdc-hr/assessment-engine/internal/config"
	"github.com/cdc-hr/assessment-engine/internal/events"
	"github.com/cdc-hr/assessment-engine/internal/handlers"
	"github.com/cdc-hr/assessment-engine/internal/repositories/postgres"
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/cdc-hr/assessment-engine/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("failed to init redis: %v", err)
	}
	defer redisClient.Close()

	var publisher events.EventPublisher
	if cfg.EventsEnabled {
		publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.GetKafkaBrokers(),
			TopicName:    cfg.AttemptTopic,
			Logger:       slogger,
		})
		if err != nil {
			log.Fatalf("failed to init event publisher: %v", err)
		}
	} else {
		logger.Info("event publishing disabled, using mock publisher")
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	store := cache.NewRedisSessionStore(redisClient, slogger)
	validator := utils.NewValidator()

	serviceManager, err := services.NewServiceManager(store, repo, publisher, slogger, validator)
	if err != nil {
		log.Fatalf("failed to init services: %v", err)
	}
	defer serviceManager.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(serviceManager, logger)
	handlerManager.SetupRoutes(router)

	logger.Info("assessment engine listening", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
