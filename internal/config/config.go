package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	JWTSecret            string
	MockPayWebhookSecret string
	InternalSecretKey    string

	Currency    string
	ShippingFee decimal.Decimal

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	KafkaBrokers       []string
	OrderEventsTopic   string
	OutboxPollInterval time.Duration
	ReminderInterval   time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	OTLPEndpoint string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),

		JWTSecret:            os.Getenv("JWT_SECRET"),
		MockPayWebhookSecret: os.Getenv("MOCKPAY_WEBHOOK_SECRET"),
		InternalSecretKey:    os.Getenv("INTERNAL_SECRET_KEY"),

		Currency:    getEnv("STORE_CURRENCY", "GEL"),
		ShippingFee: getDecimal("SHIPPING_FEE", decimal.Zero),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		KafkaBrokers:       getList("KAFKA_BROKERS"),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		ReminderInterval:   getDuration("REMINDER_INTERVAL", time.Hour),

		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid duration for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		log.Printf("invalid amount for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
