package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Public base URL of this service and the key clients must present.
	BackendURL    string
	BackendAPIKey string

	Port    string
	GinMode string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SessionStore  string
	SessionSecret string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	RealtimeDriver string
	NATSURL        string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	MailProvider string
	MailAPIKey   string
	MailSender   string

	RequireEmailConfirmation bool
	ConfirmationSecret       string
	ConfirmationTTL          time.Duration
	SignupRedirectDelay      time.Duration

	OpenAIAPIKey string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:8080"),
		BackendAPIKey: getEnv("BACKEND_API_KEY", ""),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "taskmaster"),

		SessionStore:  getEnv("SESSION_STORE", "cookie"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RealtimeDriver: getEnv("REALTIME_DRIVER", "memory"),
		NATSURL:        getEnv("NATS_URL", "nats://127.0.0.1:4222"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:    getEnv("S3_BUCKET", "avatars"),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		MailProvider: getEnv("MAIL_PROVIDER", "log"),
		MailAPIKey:   getEnv("MAIL_API_KEY", ""),
		MailSender:   getEnv("MAIL_SENDER", "TaskMaster <no-reply@taskmaster.local>"),

		RequireEmailConfirmation: getEnvBool("REQUIRE_EMAIL_CONFIRMATION", true),
		ConfirmationSecret:       getEnv("CONFIRMATION_SECRET", "default-confirmation-secret-change-me"),
		ConfirmationTTL:          getEnvDuration("CONFIRMATION_TTL", 24*time.Hour),
		SignupRedirectDelay:      getEnvDuration("SIGNUP_REDIRECT_DELAY", 2*time.Second),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// PublicObjectBaseURL is the prefix under which stored avatars are served.
func (c *Config) PublicObjectBaseURL() string {
	if c.S3PublicURL != "" {
		return c.S3PublicURL
	}
	return c.S3Endpoint + "/" + c.S3Bucket
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
