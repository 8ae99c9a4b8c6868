package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	JWTSecret         string
	DashboardUser     string
	DashboardPassHash string
	AccessTokenExpiry time.Duration

	// Zoho CRM (OAuth2 refresh-token grant)
	ZohoAPIBaseURL      string
	ZohoAccountsBaseURL string
	ZohoClientID        string
	ZohoClientSecret    string
	ZohoRefreshToken    string

	// Bilinfo listing feed (legacy shared-secret inspector backend)
	BilinfoBaseURL string
	BilinfoSecret  string

	// Vehicle data / plate lookup provider
	PlateLookupBaseURL string
	PlateLookupAPIKey  string

	// Desk ticket AI pipeline
	DeskPipelineBaseURL string

	// Screenshot / attachment store
	ScreenshotBaseURL  string
	MaxUploadSizeBytes int64

	SessionExpiry       time.Duration
	ScreenshotPollDelay time.Duration
	ConsistencyCronSpec string

	EmailServiceProvider string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string
	NotifyEmail string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./backoffice.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:         jwtSecret,
		DashboardUser:     getEnv("DASHBOARD_USER", "backoffice"),
		DashboardPassHash: getEnv("DASHBOARD_PASS_HASH", ""),
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 12*time.Hour),

		ZohoAPIBaseURL:      getEnv("ZOHO_API_BASE_URL", "https://www.zohoapis.eu/crm/v2"),
		ZohoAccountsBaseURL: getEnv("ZOHO_ACCOUNTS_BASE_URL", "https://accounts.zoho.eu"),
		ZohoClientID:        getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret:    getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken:    getEnv("ZOHO_REFRESH_TOKEN", ""),

		BilinfoBaseURL: getEnv("BILINFO_BASE_URL", ""),
		BilinfoSecret:  getEnv("BILINFO_SECRET", ""),

		PlateLookupBaseURL: getEnv("PLATE_LOOKUP_BASE_URL", ""),
		PlateLookupAPIKey:  getEnv("PLATE_LOOKUP_API_KEY", ""),

		DeskPipelineBaseURL: getEnv("DESK_PIPELINE_BASE_URL", ""),

		ScreenshotBaseURL:  getEnv("SCREENSHOT_BASE_URL", ""),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		SessionExpiry:       getEnvAsDuration("SESSION_EXPIRY", 2*time.Hour),
		ScreenshotPollDelay: getEnvAsDuration("SCREENSHOT_POLL_DELAY", 5*time.Second),
		ConsistencyCronSpec: getEnv("CONSISTENCY_CRON_SPEC", "15 3 * * *"),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "CarPal Backoffice"),
		NotifyEmail: getEnv("NOTIFY_EMAIL", ""),
	}

	if Cfg.ZohoClientID == "" || Cfg.ZohoClientSecret == "" || Cfg.ZohoRefreshToken == "" {
		log.Println("WARNING: Zoho OAuth credentials incomplete (ZOHO_CLIENT_ID, ZOHO_CLIENT_SECRET, ZOHO_REFRESH_TOKEN). Deal loading and field export will fail until configured.")
	}
	if Cfg.BilinfoBaseURL == "" || Cfg.BilinfoSecret == "" {
		log.Println("WARNING: BILINFO_BASE_URL or BILINFO_SECRET not set. Bilinfo dashboard actions will be rejected.")
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.SenderEmail == "noreply@example.com" || Cfg.SenderEmail == "" {
			log.Fatalf("FATAL: SENDER_EMAIL must be configured properly (e.g., your Mailgun sender) when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
