package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Payment gateway
	StripeKey        string
	CheckoutCurrency string
	ClientDomain     string
	PaymentTimeout   time.Duration

	// Gateway circuit breaker
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration

	// Ticket moderation
	AdvertiseCap int

	// Reconcile endpoint, requests per minute per caller
	ReconcileRateLimit int

	// Ledger event broker, disabled when the url is empty
	RabbitMQURL      string
	RabbitMQExchange string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "tickethive-server"),

		// Payment
		StripeKey:        getEnv("STRIPE_KEY", ""),
		CheckoutCurrency: getEnv("CHECKOUT_CURRENCY", "usd"),
		ClientDomain:     getEnv("CLIENT_DOMAIN", "http://localhost:5173"),
		PaymentTimeout:   getEnvAsDuration("PAYMENT_TIMEOUT", "30m"),

		// Breaker
		BreakerMinRequests:  getEnvAsInt("GATEWAY_BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio: getEnvAsFloat("GATEWAY_BREAKER_FAILURE_RATIO", 0.6),
		BreakerInterval:     getEnvAsDuration("GATEWAY_BREAKER_INTERVAL", "60s"),
		BreakerTimeout:      getEnvAsDuration("GATEWAY_BREAKER_TIMEOUT", "30s"),

		// Moderation
		AdvertiseCap: getEnvAsInt("ADVERTISE_CAP", 6),

		ReconcileRateLimit: getEnvAsInt("RECONCILE_RATE_LIMIT", 30),

		// Broker
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "tickethive"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
