// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Postgres    PostgresConfig
	Mongo       MongoConfig
	Neo4j       Neo4jConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Recommend   RecommendConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    int // seconds, per-operation bound
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Timeout  int // seconds, per-operation bound
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CacheConfig struct {
	ProductTTL int // seconds
	RankingTTL int // seconds
}

type RecommendConfig struct {
	MinSimilarity      float64
	ViewWindowDays     int
	InfluenceWindow    int // days before/after a rating compared for sales impact
	MinPositiveRatings int
	MaxPathHops        int
	DefaultLimit       int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: strings.Split(
				getEnv("SERVER_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Postgres: PostgresConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "catalog"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DB", "catalog"),
			Collection: getEnv("MONGO_COLLECTION", "products"),
			Timeout:    getEnvAsInt("MONGO_TIMEOUT", 5),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			Username: getEnv("NEO4J_USERNAME", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Timeout:  getEnvAsInt("NEO4J_TIMEOUT", 10),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			ProductTTL: getEnvAsInt("CACHE_PRODUCT_TTL", 600),
			RankingTTL: getEnvAsInt("CACHE_RANKING_TTL", 604800), // 1 week
		},
		Recommend: RecommendConfig{
			MinSimilarity:      getEnvAsFloat("RECOMMEND_MIN_SIMILARITY", 0.1),
			ViewWindowDays:     getEnvAsInt("RECOMMEND_VIEW_WINDOW_DAYS", 30),
			InfluenceWindow:    getEnvAsInt("RECOMMEND_INFLUENCE_WINDOW_DAYS", 7),
			MinPositiveRatings: getEnvAsInt("RECOMMEND_MIN_POSITIVE_RATINGS", 3),
			MaxPathHops:        getEnvAsInt("RECOMMEND_MAX_PATH_HOPS", 6),
			DefaultLimit:       getEnvAsInt("RECOMMEND_DEFAULT_LIMIT", 10),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Postgres.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Neo4j.Password == "" && c.Environment == "production" {
		return fmt.Errorf("neo4j password is required in production")
	}

	if c.Recommend.MinSimilarity < 0 || c.Recommend.MinSimilarity > 1 {
		return fmt.Errorf("minimum similarity must be within [0, 1]")
	}

	if c.Recommend.MaxPathHops < 1 {
		return fmt.Errorf("max path hops must be positive")
	}

	return nil
}

func (c *CacheConfig) ProductExpiry() time.Duration {
	return time.Duration(c.ProductTTL) * time.Second
}

func (c *CacheConfig) RankingExpiry() time.Duration {
	return time.Duration(c.RankingTTL) * time.Second
}

func (m *MongoConfig) OperationTimeout() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}

func (n *Neo4jConfig) OperationTimeout() time.Duration {
	return time.Duration(n.Timeout) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
