package config

import (
	"os"
	"strconv"
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/database"
	"turnstile/internal/external"
	"turnstile/internal/ingress"
	"turnstile/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Payment  external.PaymentConfig
	Ingress  ingress.Config
	Sale     SaleConfig
}

// SaleConfig carries the flash-sale tunables. All of them are externally
// supplied; none are hardcoded in the flow itself.
type SaleConfig struct {
	// AdmissionChunkSize is how far the admitted-through threshold moves per advance
	AdmissionChunkSize int64
	// AdmissionInterval is how often the background advance runs
	AdmissionInterval time.Duration
	// PurchasableQueueSize is the queue depth below which buyers skip the gate
	PurchasableQueueSize int64
	// SessionTTL bounds how long a claimed unit may stay RESERVED unconfirmed
	SessionTTL time.Duration
	// HeartbeatTTL bounds how long a silent waiting entry stays alive
	HeartbeatTTL time.Duration
	// WaitingSweepInterval is how often the front-of-queue expiry sweep runs
	WaitingSweepInterval time.Duration
	// WaitingSweepWindow is how many front entries a single sweep inspects
	WaitingSweepWindow int64
	// SessionSweepInterval is how often orphaned RESERVED units are reclaimed
	SessionSweepInterval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	// Development convenience, ignored when no .env file exists
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "turnstile"),
			Password:           getEnv("DB_PASSWORD", "turnstile123"),
			DBName:             getEnv("DB_NAME", "turnstile"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "turnstile"),
			ClientID:  getEnv("NATS_CLIENT_ID", "turnstile-api"),
		},

		Payment: external.PaymentConfig{
			BaseURL:  getEnv("PAYMENT_GATEWAY_URL", ""),
			TeamSlug: getEnv("PAYMENT_TEAM_SLUG", ""),
			Password: getEnv("PAYMENT_PASSWORD", ""),
			Timeout:  time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Ingress: ingress.Config{
			Capacity:       getEnvInt("INGRESS_CAPACITY", 1000),
			OfferTimeout:   time.Duration(getEnvInt("INGRESS_OFFER_TIMEOUT_SEC", 5)) * time.Second,
			DrainBatchSize: getEnvInt("INGRESS_DRAIN_BATCH", 50),
			DrainInterval:  time.Duration(getEnvInt("INGRESS_DRAIN_INTERVAL_MS", 100)) * time.Millisecond,
			Distributed:    getEnv("INGRESS_DISTRIBUTED", "false") == "true",
		},

		Sale: SaleConfig{
			AdmissionChunkSize:   getEnvInt64("ADMISSION_CHUNK_SIZE", 100),
			AdmissionInterval:    time.Duration(getEnvInt("ADMISSION_INTERVAL_SEC", 1)) * time.Second,
			PurchasableQueueSize: getEnvInt64("PURCHASABLE_QUEUE_SIZE", 100),
			SessionTTL:           time.Duration(getEnvInt("SESSION_TTL_SEC", 300)) * time.Second,
			HeartbeatTTL:         time.Duration(getEnvInt("WAITING_HEARTBEAT_TTL_SEC", 30)) * time.Second,
			WaitingSweepInterval: time.Duration(getEnvInt("WAITING_SWEEP_INTERVAL_SEC", 10)) * time.Second,
			WaitingSweepWindow:   getEnvInt64("WAITING_SWEEP_WINDOW", 100),
			SessionSweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_SEC", 30)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
