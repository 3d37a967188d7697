package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Environment string
	Port        string
	FrontendURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// Seed admin
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Email Configuration
	EmailFrom     string
	EmailFromName string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPUseTLS    bool

	// Zoom (server-to-server OAuth)
	ZoomAccountID    string
	ZoomClientID     string
	ZoomClientSecret string
	ZoomAPIBaseURL   string
	ZoomOAuthURL     string

	// Razorpay
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	// MinIO Configuration
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string
	AvatarMaxBytes    int64

	// Auth endpoint rate limiting
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	AuthRateLimitBurst    int
	AuthRateLimitBlock    time.Duration

	// Reminders
	ReminderInterval time.Duration
	ReminderWindow   time.Duration

	// Observability
	MetricsNamespace string
	OTELEndpoint     string
	OTELInsecure     bool
}

// LoadConfig loads configuration from .env (if present) and environment variables
func LoadConfig() *Config {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "5000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "meetdesk"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours: getEnvAsInt("JWT_EXPIRE_HOURS", 24),

		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@meetdesk.local"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "admin12345"),
		AdminFirstName: getEnv("ADMIN_FIRST_NAME", "System"),
		AdminLastName:  getEnv("ADMIN_LAST_NAME", "Admin"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		EmailFrom:     getEnv("EMAIL_FROM_ADDRESS", "noreply@meetdesk.local"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "MeetDesk"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:    getEnvAsBool("SMTP_USE_TLS", false),

		ZoomAccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
		ZoomClientID:     getEnv("ZOOM_CLIENT_ID", ""),
		ZoomClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
		ZoomAPIBaseURL:   getEnv("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"),
		ZoomOAuthURL:     getEnv("ZOOM_OAUTH_URL", "https://zoom.us/oauth/token"),

		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),

		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "meetdesk-avatars"),
		AvatarMaxBytes:    int64(getEnvAsInt("AVATAR_MAX_BYTES", 5<<20)),

		AuthRateLimitRequests: getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 10),
		AuthRateLimitWindow:   getEnvAsDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
		AuthRateLimitBurst:    getEnvAsInt("RATE_LIMIT_AUTH_BURST", 5),
		AuthRateLimitBlock:    getEnvAsDuration("RATE_LIMIT_AUTH_BLOCK", 15*time.Minute),

		ReminderInterval: getEnvAsDuration("REMINDER_INTERVAL", time.Minute),
		ReminderWindow:   getEnvAsDuration("REMINDER_WINDOW", 15*time.Minute),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "meetdesk"),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	log.Println("✅ Configuration loaded successfully")
	return cfg
}

// IsProduction reports whether error details must be hidden from clients
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// JWTExpireDuration returns the access token lifetime
func (c *Config) JWTExpireDuration() time.Duration {
	if c.JWTExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// DSN builds the postgres connection string
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: Could not convert %s value '%s' to int, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "15m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: Could not parse %s value '%s' as duration, using default %s", key, value, defaultValue)
	}
	return defaultValue
}
