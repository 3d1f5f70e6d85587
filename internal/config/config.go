package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdentityBaseURL string
	IdentityAPIKey  string

	PaymentBaseURL   string
	PaymentKeyID     string
	PaymentKeySecret string

	SessionTTL        time.Duration
	OTPResendInterval time.Duration

	ProfileFetchTimeout time.Duration
	ProfileRetryBackoff time.Duration
	ProfileMaxRetries   int

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	identityBaseURL := strings.TrimSpace(os.Getenv("IDENTITY_BASE_URL"))
	if identityBaseURL == "" {
		return Config{}, fmt.Errorf("IDENTITY_BASE_URL is required")
	}

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "spark-member"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		IdentityBaseURL: identityBaseURL,
		IdentityAPIKey:  os.Getenv("IDENTITY_API_KEY"),

		PaymentBaseURL:   os.Getenv("PAYMENT_BASE_URL"),
		PaymentKeyID:     os.Getenv("PAYMENT_KEY_ID"),
		PaymentKeySecret: os.Getenv("PAYMENT_KEY_SECRET"),

		SessionTTL:        getDuration("SESSION_TTL", time.Hour),
		OTPResendInterval: getDuration("OTP_RESEND_INTERVAL", 30*time.Second),

		ProfileFetchTimeout: getDuration("PROFILE_FETCH_TIMEOUT", 15*time.Second),
		ProfileRetryBackoff: getDuration("PROFILE_RETRY_BACKOFF", 2*time.Second),
		ProfileMaxRetries:   getInt("PROFILE_MAX_RETRIES", 3),

		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
