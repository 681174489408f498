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
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ingest   IngestConfig
	API      APIConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicIngest   string
	NumPartitions int
}

type IngestConfig struct {
	SnapshotPath  string
	MaxAge        time.Duration
	PublishEvents bool
}

type APIConfig struct {
	Port           int
	LatestCacheTTL time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "border_user"),
			Password: getEnv("DB_PASSWORD", "border_pass"),
			DBName:   getEnv("DB_NAME", "border_queue_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicIngest:   getEnv("KAFKA_TOPIC_INGEST", "border.queue.measurements"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 4),
		},
		Ingest: IngestConfig{
			SnapshotPath:  getEnv("SNAPSHOT_PATH", "echerga-snapshot.json"),
			MaxAge:        getEnvAsDuration("SNAPSHOT_MAX_AGE", 900*time.Second),
			PublishEvents: getEnvAsBool("INGEST_PUBLISH_EVENTS", true),
		},
		API: APIConfig{
			Port:           getEnvAsInt("API_PORT", 8081),
			LatestCacheTTL: getEnvAsDuration("LATEST_CACHE_TTL", time.Hour),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
