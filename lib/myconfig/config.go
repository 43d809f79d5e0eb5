package myconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	GoogleProject string

	// Checkout sessions
	SessionTTL           time.Duration
	SessionRetention     time.Duration
	ReaperInterval       time.Duration
	MaxTicketsPerSession int
	StorefrontURL        string

	// Payment provider
	PaymentProvider     string
	StripeAPIKey        string
	StripeWebhookSecret string
	MollieAPIKey        string
	MollieTestMode      bool
	FakeGatewaySecret   string

	// Event catalog
	CatalogURL  string
	CatalogFile string

	// Locking
	RedisURL string

	// PubNub
	PubNubPublishKey   string
	PubNubSubscribeKey string

	// Staff credentials as "<uid>:<secret>,<uid>:<secret>"
	StaffSeed string
}

// Load reads the configuration from the environment, after merging an optional .env file.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		Port:          getEnv("PORT", "8080"),
		GoogleProject: getEnv("GOOGLE_CLOUD_PROJECT", ""),

		SessionTTL:           getEnvAsDuration("SESSION_TTL", "20m"),
		SessionRetention:     getEnvAsDuration("SESSION_RETENTION", "24h"),
		ReaperInterval:       getEnvAsDuration("REAPER_INTERVAL", "0s"),
		MaxTicketsPerSession: getEnvAsInt("MAX_TICKETS_PER_SESSION", 10),
		StorefrontURL:        getEnv("STOREFRONT_URL", "http://localhost:8080"),

		PaymentProvider:     getEnv("PAYMENT_PROVIDER", "fake"),
		StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		MollieAPIKey:        getEnv("MOLLIE_API_KEY", ""),
		MollieTestMode:      getEnvAsBool("MOLLIE_TEST_MODE", true),
		FakeGatewaySecret:   getEnv("FAKE_GATEWAY_SECRET", "local-secret"),

		CatalogURL:  getEnv("CATALOG_URL", ""),
		CatalogFile: getEnv("CATALOG_FILE", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),

		StaffSeed: getEnv("STAFF_SEED", ""),
	}
}

// Validate rejects settings that are only safe on a developer machine: the fake gateway
// accepts any webhook signed with a shared secret.
func (c *Config) Validate() error {
	if c.GoogleProject != "" && c.PaymentProvider == "fake" {
		return fmt.Errorf("PAYMENT_PROVIDER fake is not allowed in project %s", c.GoogleProject)
	}
	return nil
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
