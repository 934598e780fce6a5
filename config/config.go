package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	AppURL      string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Scanning
	ScanTimeout   time.Duration
	ScanRateLimit int

	// Mail
	MailSendDelay        time.Duration
	MailBreakerThreshold int64
	NotifyConsumerGroup  string

	// Reminders
	ReminderLockTTL time.Duration
	ReminderJobTTL  time.Duration

	// Access passwords
	AccessRateLimit int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppURL:      getEnv("APP_URL", "http://localhost:8090"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "eventpass-server"),

		// Scanning
		ScanTimeout:   getEnvAsDuration("SCAN_TIMEOUT", "5s"),
		ScanRateLimit: getEnvAsInt("SCAN_RATE_LIMIT", 120),

		// Mail
		MailSendDelay:        getEnvAsDuration("MAIL_SEND_DELAY", "600ms"),
		MailBreakerThreshold: int64(getEnvAsInt("MAIL_BREAKER_THRESHOLD", 5)),
		NotifyConsumerGroup:  getEnv("NOTIFY_CONSUMER_GROUP", "eventpass-mailer"),

		// Reminders
		ReminderLockTTL: getEnvAsDuration("REMINDER_LOCK_TTL", "30m"),
		ReminderJobTTL:  getEnvAsDuration("REMINDER_JOB_TTL", "24h"),

		// Access passwords
		AccessRateLimit: getEnvAsInt("ACCESS_RATE_LIMIT", 10),

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
	// fall back to the default when the env value is malformed
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
