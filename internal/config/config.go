package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	UploadBucket        string
	UploadMaxBytes      int64
	UploadAuthSecret    string
	AnalyticsStream     string
	CORSAllowedOrigins  []string
	ContactRateLimit    float64
	ContactRateBurst    int
	HealthProbeTimeout  time.Duration
	ShutdownGracePeriod time.Duration

	// Contact notification email
	EmailProvider     string // "sendgrid", "ses", or "" (disabled)
	SendGridAPIKey    string
	SESFromEmail      string
	NotifyFromEmail   string
	NotifyFromName    string
	NotifyRecipient   string
	SendGridFromEmail string
}

// Load reads configuration from environment variables. Outside production a
// .env file in the working directory is loaded first when present.
func Load() *Config {
	if getEnv("ENV", "development") != "production" {
		_ = godotenv.Load()
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		UploadBucket:        getEnv("UPLOAD_BUCKET", ""),
		UploadMaxBytes:      getEnvAsInt64("UPLOAD_MAX_BYTES", 10<<20),
		UploadAuthSecret:    getEnv("UPLOAD_AUTH_SECRET", ""),
		AnalyticsStream:     getEnv("ANALYTICS_STREAM", "analytics:events"),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ContactRateLimit:    getEnvAsFloat("CONTACT_RATE_LIMIT", 1),
		ContactRateBurst:    getEnvAsInt("CONTACT_RATE_BURST", 5),
		HealthProbeTimeout:  getEnvAsDuration("HEALTH_PROBE_TIMEOUT", 2*time.Second),
		ShutdownGracePeriod: getEnvAsDuration("SHUTDOWN_GRACE_PERIOD", 30*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		NotifyFromEmail:   getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "Harborgate"),
		NotifyRecipient:   getEnv("NOTIFY_RECIPIENT", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
