package main

import (
	"context"
	"log"

	"articleqa/broker"
	"articleqa/config"
	"articleqa/handlers"
	"articleqa/middleware"
	"articleqa/models"
	"articleqa/routes"
	"articleqa/services"
	"articleqa/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Question{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	questionStore := store.NewPostgresStore(db)
	redisBroker := broker.NewRedisBroker(redisClient, cfg.ConsumerGroup)
	questionService := services.NewQuestionService(questionStore, redisBroker, cfg.ArticleExistStream)
	tokenService := services.NewTokenService(cfg.JWTSecret, services.NewRedisRevocationStore(redisClient))

	// Subscribe consumers: article verdicts on the questions stream,
	// session invalidation on the auth stream.
	verdicts := broker.NewDispatcher(cfg.QuestionsStream)
	questionService.Register(verdicts)

	logouts := broker.NewDispatcher(cfg.AuthStream)
	tokenService.Register(logouts)

	ctx := context.Background()
	go runConsumer(ctx, redisBroker, verdicts)
	go runConsumer(ctx, redisBroker, logouts)

	// Initialize handlers
	questionHandler := handlers.NewQuestionHandler(questionService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, questionHandler, tokenService)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func runConsumer(ctx context.Context, b *broker.RedisBroker, d *broker.Dispatcher) {
	if err := b.Consume(ctx, d); err != nil && ctx.Err() == nil {
		log.Fatalf("Consumer for stream %s stopped: %v", d.Topic(), err)
	}
}
