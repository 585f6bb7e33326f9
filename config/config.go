package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port        string
	BindAddress string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisHost   string
	RedisPort   string
	JWTSecret   string

	// Broker stream names. One stream per logical topic; the envelope
	// "type" field dispatches message kinds within a stream.
	QuestionsStream    string
	ArticleExistStream string
	AuthStream         string
	ConsumerGroup      string
}

func Load() *Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		BindAddress:        getEnv("BIND_ADDRESS", "localhost"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "articleqa"),
		DBPassword:         getEnv("DB_PASSWORD", "articleqa123"),
		DBName:             getEnv("DB_NAME", "articleqa"),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		QuestionsStream:    getEnv("QUESTIONS_STREAM", "questions"),
		ArticleExistStream: getEnv("ARTICLE_EXIST_STREAM", "article_exist"),
		AuthStream:         getEnv("AUTH_STREAM", "auth"),
		ConsumerGroup:      getEnv("CONSUMER_GROUP", "questions-service"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	return client
}
