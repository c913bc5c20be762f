// Package config loads PatentDesk configuration from environment variables.
//
// An optional .env file (path from PATENTDESK_ENV_FILE, default ".env") is loaded first
// with godotenv; values already present in the environment win.
//
// Server:
//
//	PATENTDESK_HOST="0.0.0.0"
//	PATENTDESK_PORT="8080"
//	PATENTDESK_APP_BASE_URL="https://app.example.com"
//
// Storage:
//
//	PATENTDESK_POSTGRES_URL="postgres://localhost/patentdesk?sslmode=disable"
//	PATENTDESK_REDIS_URL="redis://localhost:6379/0"
//	PATENTDESK_S3_BUCKET="patentdesk-imports"
//
// Auth and payments:
//
//	PATENTDESK_JWT_SECRET="..."
//	PATENTDESK_RAZORPAY_KEY_ID="rzp_live_..."
//	PATENTDESK_RAZORPAY_KEY_SECRET="..."
//	PATENTDESK_STRIPE_WEBHOOK_SECRET="whsec_..."
//
// Observability:
//
//	PATENTDESK_LOG_LEVEL="info"
//	PATENTDESK_OTEL_ENABLED="false"
package config
