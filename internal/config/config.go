package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// RedisConfig is shared by the snapshot cache and the job queue.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// CacheConfig tunes the latest-snapshot cache.
type CacheConfig struct {
	// TTL of 0 keeps entries until they are overwritten.
	TTL time.Duration
}

// QueueConfig holds diff job queue and worker settings.
type QueueConfig struct {
	Name          string
	MaxRetry      int
	Concurrency   int
	WorkerEnabled bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MongoConfig is used when diffs are published to MongoDB.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Diff sink names accepted by DIFF_SINK.
const (
	DiffSinkMinIO = "minio"
	DiffSinkMongo = "mongo"
	DiffSinkLog   = "log"
)

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	DiffSink string
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Queue    QueueConfig
	MinIO    MinIOConfig
	Mongo    MongoConfig
}

var defaults = map[string]any{
	"APP_HOST":                 "localhost:8080",
	"PORT":                     "8080",
	"LOG_LEVEL":                "info",
	"DIFF_SINK":                DiffSinkMinIO,
	"DB_PORT":                  "5432",
	"DB_SSLMODE":               "disable",
	"DB_MAX_OPEN_CONNS":        10,
	"DB_MAX_IDLE_CONNS":        5,
	"DB_CONN_MAX_LIFETIME_SEC": 300,
	"REDIS_HOST":               "localhost",
	"REDIS_PORT":               "6379",
	"REDIS_DB":                 0,
	"CACHE_TTL_SEC":            0,
	"QUEUE_NAME":               "document-diff-queue",
	"QUEUE_MAX_RETRY":          5,
	"WORKER_CONCURRENCY":       10,
	"WORKER_ENABLED":           true,
	"MINIO_USE_SSL":            false,
	"MONGO_DATABASE":           "docchain",
	"MONGO_TIMEOUT_SEC":        10,
}

// Load reads configuration from environment variables through viper.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over defaults; malformed numbers and booleans fall back to the default.
func Load() *AppConfig {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	return &AppConfig{
		AppHost:  v.GetString("APP_HOST"),
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		DiffSink: strings.ToLower(v.GetString("DIFF_SINK")),
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetString("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Name:               v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       getEnvInt(v, "DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       getEnvInt(v, "DB_MAX_IDLE_CONNS"),
			ConnMaxLifetimeSec: getEnvInt(v, "DB_CONN_MAX_LIFETIME_SEC"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       getEnvInt(v, "REDIS_DB"),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvInt(v, "CACHE_TTL_SEC")) * time.Second,
		},
		Queue: QueueConfig{
			Name:          v.GetString("QUEUE_NAME"),
			MaxRetry:      getEnvInt(v, "QUEUE_MAX_RETRY"),
			Concurrency:   getEnvInt(v, "WORKER_CONCURRENCY"),
			WorkerEnabled: getEnvBool(v, "WORKER_ENABLED"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    getEnvBool(v, "MINIO_USE_SSL"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
			Timeout:  time.Duration(getEnvInt(v, "MONGO_TIMEOUT_SEC")) * time.Second,
		},
	}
}

func getEnvBool(v *viper.Viper, key string) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key))); err == nil {
		return b
	}
	d, _ := defaults[key].(bool)
	return d
}

func getEnvInt(v *viper.Viper, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return i
	}
	d, _ := defaults[key].(int)
	return d
}
