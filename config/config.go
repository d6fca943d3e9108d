// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBusinessID is the partner business the portal URLs point at.
const DefaultBusinessID = "899762"

// Config holds all configuration for the application
type Config struct {
	// Server
	ListenAddr         string
	ActivationKey      string
	RateLimitPerMinute int

	// Portal account
	AccountID  string
	Password   string
	BusinessID string

	LoginURL       string
	ManagementURL  string
	BookingListURL string

	// Browser
	Browser           string
	Headless          bool
	UserAgent         string
	PaceMin           time.Duration
	PaceMax           time.Duration
	LocateMaxAdvances int
	OperationTimeout  time.Duration

	// Probe
	ProxyURL string

	// Logging and metrics
	LogFile          string
	LogLevel         string
	MetricsNamespace string
}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var errs []error
	businessID := getEnv("BUSINESS_ID", DefaultBusinessID)

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":5000"),
		ActivationKey:      os.Getenv("ACTIVATION_KEY"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30, &errs),

		AccountID:  os.Getenv("ID"),
		Password:   os.Getenv("PASSWORD"),
		BusinessID: businessID,

		LoginURL:       getEnv("LOGIN_URL", "https://nid.naver.com/nidlogin.login"),
		ManagementURL:  getEnv("MANAGEMENT_URL", "https://partner.booking.naver.com/bizes/"+businessID+"/simple-management"),
		BookingListURL: getEnv("BOOKING_LIST_URL", "https://partner.booking.naver.com/bizes/"+businessID+"/booking-list-view"),

		Browser:           strings.ToLower(getEnv("BROWSER", "chromium")),
		Headless:          getEnvAsBool("HEADLESS", true, &errs),
		UserAgent:         os.Getenv("USER_AGENT"),
		PaceMin:           time.Duration(getEnvAsInt("PACE_MIN_MS", 1500, &errs)) * time.Millisecond,
		PaceMax:           time.Duration(getEnvAsInt("PACE_MAX_MS", 3000, &errs)) * time.Millisecond,
		LocateMaxAdvances: getEnvAsInt("LOCATE_MAX_ADVANCES", 10, &errs),
		OperationTimeout:  getEnvAsDuration("OPERATION_TIMEOUT", 10*time.Minute, &errs),

		ProxyURL: os.Getenv("PROXY_URL"),

		LogFile:          getEnv("LOG_FILE", "logs/server.log"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "smartplace_sync"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.PaceMin < 0:
		return fmt.Errorf("invalid PACE_MIN_MS: must not be negative")
	case c.PaceMax < c.PaceMin:
		return fmt.Errorf("invalid PACE_MAX_MS: must be >= PACE_MIN_MS")
	case c.LocateMaxAdvances <= 0:
		return fmt.Errorf("invalid LOCATE_MAX_ADVANCES: must be positive")
	case c.RateLimitPerMinute < 0:
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: must not be negative")
	case c.OperationTimeout <= 0:
		return fmt.Errorf("invalid OPERATION_TIMEOUT: must be positive")
	}
	return nil
}

// RequireCredentials reports an error when the portal login is not configured.
func (c *Config) RequireCredentials() error {
	if c.AccountID == "" || c.Password == "" {
		return errors.New("ID and PASSWORD must be set")
	}
	return nil
}

// RequireActivationKey reports an error when the HTTP access key is not configured.
func (c *Config) RequireActivationKey() error {
	if c.ActivationKey == "" {
		return errors.New("ACTIVATION_KEY must be set")
	}
	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int, errs *[]error) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool, errs *[]error) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return value
}
