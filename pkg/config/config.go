package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	S3            S3Config
	Auth          AuthConfig
	Payments      PaymentsConfig
	Mail          MailConfig
	Plans         PlansConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	AllowedOrigins  []string
	AppBaseURL      string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	Migrate     bool
}

// RedisConfig holds Redis connection settings for the OTP store
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// S3Config holds object storage settings for imported patent files
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// AuthConfig holds session and OTP settings
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	OTPTTL            time.Duration
	PendingSignupTTL  time.Duration
	OTPResendInterval time.Duration
	OTPMaxAttempts    int
}

// PaymentsConfig holds gateway credentials
type PaymentsConfig struct {
	RazorpayKeyID       string
	RazorpayKeySecret   string
	StripeWebhookSecret string
	Currency            string
}

// MailConfig holds transactional email settings
type MailConfig struct {
	BrevoAPIKey string
	FromEmail   string
	FromName    string
}

// PlansConfig holds plan catalog settings
type PlansConfig struct {
	SeedFile  string
	WatchSeed bool
	CacheSize int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from an optional .env file and the environment
func LoadConfig() (*Config, error) {
	envFile := getEnv("PATENTDESK_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		S3:            loadS3Config(),
		Auth:          loadAuthConfig(),
		Payments:      loadPaymentsConfig(),
		Mail:          loadMailConfig(),
		Plans:         loadPlansConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PATENTDESK_HOST", "0.0.0.0"),
		Port:            getEnv("PATENTDESK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PATENTDESK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PATENTDESK_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("PATENTDESK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PATENTDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxUploadBytes:  getEnvInt64("PATENTDESK_MAX_UPLOAD_BYTES", 10<<20),
		AllowedOrigins:  getEnvList("PATENTDESK_ALLOWED_ORIGINS", []string{"*"}),
		AppBaseURL:      strings.TrimRight(getEnv("PATENTDESK_APP_BASE_URL", "http://localhost:3000"), "/"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("PATENTDESK_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("PATENTDESK_POSTGRES_MAX_CONNS", 20),
		MinConns:    getEnvInt("PATENTDESK_POSTGRES_MIN_CONNS", 2),
		Timeout:     getEnvDuration("PATENTDESK_POSTGRES_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("PATENTDESK_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		MaxIdleTime: getEnvDuration("PATENTDESK_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		Migrate:     getEnvBool("PATENTDESK_POSTGRES_MIGRATE", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("PATENTDESK_REDIS_URL", "redis://localhost:6379/0"),
		Password: getEnv("PATENTDESK_REDIS_PASSWORD", ""),
		DB:       getEnvInt("PATENTDESK_REDIS_DB", -1),
		PoolSize: getEnvInt("PATENTDESK_REDIS_POOL_SIZE", 10),
	}
}

func loadS3Config() S3Config {
	return S3Config{
		Endpoint:     getEnv("PATENTDESK_S3_ENDPOINT", ""),
		Region:       getEnv("PATENTDESK_S3_REGION", "ap-south-1"),
		Bucket:       getEnv("PATENTDESK_S3_BUCKET", ""),
		AccessKey:    getEnv("PATENTDESK_S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("PATENTDESK_S3_SECRET_KEY", ""),
		UsePathStyle: getEnvBool("PATENTDESK_S3_USE_PATH_STYLE", false),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:         getEnv("PATENTDESK_JWT_SECRET", ""),
		TokenTTL:          getEnvDuration("PATENTDESK_TOKEN_TTL", 24*time.Hour),
		OTPTTL:            getEnvDuration("PATENTDESK_OTP_TTL", 5*time.Minute),
		PendingSignupTTL:  getEnvDuration("PATENTDESK_PENDING_SIGNUP_TTL", 10*time.Minute),
		OTPResendInterval: getEnvDuration("PATENTDESK_OTP_RESEND_INTERVAL", 60*time.Second),
		OTPMaxAttempts:    getEnvInt("PATENTDESK_OTP_MAX_ATTEMPTS", 5),
	}
}

func loadPaymentsConfig() PaymentsConfig {
	return PaymentsConfig{
		RazorpayKeyID:       getEnv("PATENTDESK_RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:   getEnv("PATENTDESK_RAZORPAY_KEY_SECRET", ""),
		StripeWebhookSecret: getEnv("PATENTDESK_STRIPE_WEBHOOK_SECRET", ""),
		Currency:            getEnv("PATENTDESK_CURRENCY", "INR"),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		BrevoAPIKey: getEnv("PATENTDESK_BREVO_API_KEY", ""),
		FromEmail:   getEnv("PATENTDESK_MAIL_FROM", "no-reply@patentdesk.local"),
		FromName:    getEnv("PATENTDESK_MAIL_FROM_NAME", "PatentDesk"),
	}
}

func loadPlansConfig() PlansConfig {
	return PlansConfig{
		SeedFile:  getEnv("PATENTDESK_PLANS_FILE", "configs/plans.yaml"),
		WatchSeed: getEnvBool("PATENTDESK_PLANS_WATCH", false),
		CacheSize: getEnvInt("PATENTDESK_PLANS_CACHE_SIZE", 128),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("PATENTDESK_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("PATENTDESK_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PATENTDESK_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PATENTDESK_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PATENTDESK_OTEL_SERVICE_NAME", "patentdesk-api"),
		OTelServiceVersion: getEnv("PATENTDESK_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PATENTDESK_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Auth.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP max attempts must be positive")
	}
	if c.Payments.RazorpayKeySecret == "" {
		return fmt.Errorf("razorpay key secret is required for payment verification")
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}
	return nil
}

// Addr returns the listen address for the API server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
