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
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	AdminJWTSecret string

	CORSAllowedOrigins []string

	// Reminder dispatch tuning
	DispatchEnabled    bool
	DispatchInterval   time.Duration
	DispatchBatchSize  int
	DispatchClaimLease time.Duration
	ReminderMaxRetries int
	ReminderRetryDelay time.Duration
	SendTimeout        time.Duration

	// Redis (dispatch cycle lock)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// SMS gateway
	SMSGatewayURL    string
	SMSGatewayAPIKey string
	SMSFromNumber    string

	// Push gateway
	PushGatewayURL    string
	PushGatewayAPIKey string

	// AWS (SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: splitCommaList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		DispatchEnabled:    getEnvAsBool("DISPATCH_ENABLED", true),
		DispatchInterval:   getEnvAsDuration("DISPATCH_INTERVAL", time.Minute),
		DispatchBatchSize:  getEnvAsInt("DISPATCH_BATCH_SIZE", 50),
		DispatchClaimLease: getEnvAsDuration("DISPATCH_CLAIM_LEASE", 2*time.Minute),
		ReminderMaxRetries: getEnvAsInt("REMINDER_MAX_RETRIES", 3),
		ReminderRetryDelay: getEnvAsDuration("REMINDER_RETRY_DELAY", 15*time.Minute),
		SendTimeout:        getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinic Scheduling"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Clinic Scheduling"),

		SMSGatewayURL:    getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayAPIKey: getEnv("SMS_GATEWAY_API_KEY", ""),
		SMSFromNumber:    getEnv("SMS_FROM_NUMBER", ""),

		PushGatewayURL:    getEnv("PUSH_GATEWAY_URL", ""),
		PushGatewayAPIKey: getEnv("PUSH_GATEWAY_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
