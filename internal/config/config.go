package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Checkout modes
const (
	CheckoutModeJSON     = "json"
	CheckoutModeRedirect = "redirect"
)

// Pricing modes
const (
	PricingModeUniform        = "uniform"        // group rate equals the single-person rate
	PricingModeDifferentiated = "differentiated" // group rate taken from the tour's group price
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Wompi payment gateway configuration
	Wompi WompiConfig

	// Booking price rules
	Pricing PricingConfig

	// Checkout and payment reference configuration
	Checkout CheckoutConfig

	// Tour catalog source
	Catalog CatalogConfig

	// Optional Redis used to share the gateway access token between instances
	Redis RedisConfig

	// Checkout rate limiting
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// WompiConfig holds Wompi credentials and endpoints
type WompiConfig struct {
	AuthURL         string // OAuth token endpoint
	ClientID        string
	ClientSecret    string // SECRET - never expose to client
	Audience        string
	APIBaseURL      string
	PublicKey       string
	PrivateKey      string // used as bearer for transaction lookups when set
	IntegritySecret string // HMAC key for webhook signatures
	RedirectURL     string // where the provider sends the browser after payment
	Currency        string
	LinkValidity    time.Duration
	Timeout         time.Duration // bound on every provider call
}

// PricingConfig holds the price rule toggles
type PricingConfig struct {
	Mode      string
	PickupFee decimal.Decimal
}

// CheckoutConfig holds checkout flow configuration
type CheckoutConfig struct {
	Mode                 string // "json" returns the link, "redirect" sends a 303
	ReferenceSecret      string // falls back to the integrity secret when empty
	ProductName          string
	ConfirmationTemplate string // optional html/template file for the payment-success page
}

// CatalogConfig holds the static tour dataset location
type CatalogConfig struct {
	Path           string
	ReloadSchedule string // cron spec with seconds; empty disables scheduled reloads
}

// RateLimitConfig bounds payment link creation. A zero maximum disables that check.
type RateLimitConfig struct {
	MaxPerEmail     int
	EmailWindow     time.Duration
	MaxPerIP        int
	IPWindow        time.Duration
	CleanupSchedule string // cron spec with seconds
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Wompi: WompiConfig{
			AuthURL:         getEnv("WOMPI_AUTH", ""),
			ClientID:        getEnv("WOMPI_CLIENT_ID", ""),
			ClientSecret:    getEnv("WOMPI_CLIENT_SECRET", ""),
			Audience:        getEnv("WOMPI_AUDIENCE", "wompi_api"),
			APIBaseURL:      strings.TrimRight(getEnv("WOMPI_API", ""), "/"),
			PublicKey:       getEnv("WOMPI_PUBLIC_KEY", ""),
			PrivateKey:      getEnv("WOMPI_PRIVATE_KEY", ""),
			IntegritySecret: getEnv("WOMPI_INTEGRITY_SECRET", ""),
			RedirectURL:     getEnv("WOMPI_REDIRECT_URL", "http://localhost:5000/payment-success"),
			Currency:        getEnv("WOMPI_CURRENCY", "USD"),
			LinkValidity:    time.Duration(getEnvAsInt("WOMPI_LINK_VALIDITY_MINUTES", 1440)) * time.Minute,
			Timeout:         time.Duration(getEnvAsInt("WOMPI_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Pricing: PricingConfig{
			Mode:      getEnv("PRICING_MODE", PricingModeDifferentiated),
			PickupFee: getEnvAsDecimal("PICKUP_FEE", decimal.NewFromInt(10)),
		},
		Checkout: CheckoutConfig{
			Mode:                 getEnv("CHECKOUT_MODE", CheckoutModeJSON),
			ReferenceSecret:      getEnv("REFERENCE_SECRET", ""),
			ProductName:          getEnv("CHECKOUT_PRODUCT_NAME", "Reserva Cotuzas Tours"),
			ConfirmationTemplate: getEnv("CONFIRMATION_TEMPLATE", ""),
		},
		Catalog: CatalogConfig{
			Path:           getEnv("CATALOG_PATH", "data/tours.json"),
			ReloadSchedule: getEnv("CATALOG_RELOAD_SCHEDULE", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		RateLimit: RateLimitConfig{
			MaxPerEmail:     getEnvAsInt("CHECKOUT_MAX_PER_EMAIL", 5),
			EmailWindow:     time.Duration(getEnvAsInt("CHECKOUT_EMAIL_WINDOW_MINUTES", 10)) * time.Minute,
			MaxPerIP:        getEnvAsInt("CHECKOUT_MAX_PER_IP", 20),
			IPWindow:        time.Duration(getEnvAsInt("CHECKOUT_IP_WINDOW_MINUTES", 60)) * time.Minute,
			CleanupSchedule: getEnv("RATE_LIMIT_CLEANUP_SCHEDULE", "0 */30 * * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	if config.Checkout.ReferenceSecret == "" {
		config.Checkout.ReferenceSecret = config.Wompi.IntegritySecret
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	required := []struct {
		name  string
		value string
	}{
		{"WOMPI_AUTH", c.Wompi.AuthURL},
		{"WOMPI_CLIENT_ID", c.Wompi.ClientID},
		{"WOMPI_CLIENT_SECRET", c.Wompi.ClientSecret},
		{"WOMPI_API", c.Wompi.APIBaseURL},
		{"WOMPI_INTEGRITY_SECRET", c.Wompi.IntegritySecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if c.Wompi.Timeout <= 0 {
		return fmt.Errorf("WOMPI_TIMEOUT_SECONDS must be positive")
	}
	if c.Wompi.LinkValidity <= 0 {
		return fmt.Errorf("WOMPI_LINK_VALIDITY_MINUTES must be positive")
	}

	switch c.Checkout.Mode {
	case CheckoutModeJSON, CheckoutModeRedirect:
	default:
		return fmt.Errorf("invalid CHECKOUT_MODE: %s (must be 'json' or 'redirect')", c.Checkout.Mode)
	}

	switch c.Pricing.Mode {
	case PricingModeUniform, PricingModeDifferentiated:
	default:
		return fmt.Errorf("invalid PRICING_MODE: %s (must be 'uniform' or 'differentiated')", c.Pricing.Mode)
	}

	if c.Pricing.PickupFee.IsNegative() {
		return fmt.Errorf("PICKUP_FEE cannot be negative")
	}

	if c.Checkout.ReferenceSecret == "" {
		return fmt.Errorf("REFERENCE_SECRET is required")
	}

	if c.RateLimit.MaxPerEmail < 0 || c.RateLimit.MaxPerIP < 0 {
		return fmt.Errorf("checkout rate limits cannot be negative")
	}
	if c.RateLimit.EmailWindow <= 0 || c.RateLimit.IPWindow <= 0 {
		return fmt.Errorf("checkout rate limit windows must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("Invalid decimal value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
