package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Application settings
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Facebook  FacebookConfig
	Extract   ExtractConfig
	Warehouse WarehouseConfig
}

// Server settings
type ServerConfig struct {
	Port string
}

// Graph API access settings
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	AccessToken string
	BaseURL     string
	APIVersion  string
}

// Extraction pipeline tunables. AccountWorkers stays low because the
// per-app rate limit is shared across accounts; CreativeWorkers can run
// higher because the creative endpoint has looser limits.
type ExtractConfig struct {
	AccountIDs      []string
	Since           string
	Until           string
	AccountWorkers  int
	CreativeWorkers int
	PageLimit       int
	MaxRetries      int
	RequestTimeout  time.Duration
	LookupTimeout   time.Duration
	BackfillPause   time.Duration
}

// Staging warehouse settings. Empty DSN disables the Postgres writer.
type WarehouseConfig struct {
	PostgresDSN  string
	StagingTable string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Facebook: FacebookConfig{
			AppID:       getEnv("FB_APP_ID", ""),
			AppSecret:   getEnv("FB_APP_SECRET", ""),
			AccessToken: getEnv("FB_ACCESS_TOKEN", ""),
			BaseURL:     getEnv("FB_GRAPH_URL", "https://graph.facebook.com"),
			APIVersion:  getEnv("FB_API_VERSION", "v21.0"),
		},
		Extract: ExtractConfig{
			AccountIDs:      getSliceEnv("AD_ACCOUNTS"),
			Since:           getEnv("EXTRACT_SINCE", ""),
			Until:           getEnv("EXTRACT_UNTIL", ""),
			AccountWorkers:  getIntEnv("ACCOUNT_WORKERS", 2),
			CreativeWorkers: getIntEnv("CREATIVE_WORKERS", 30),
			PageLimit:       getIntEnv("PAGE_LIMIT", 500),
			MaxRetries:      getIntEnv("MAX_RETRIES", 5),
			RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", "30s"),
			LookupTimeout:   getDurationEnv("LOOKUP_TIMEOUT", "15s"),
			BackfillPause:   getDurationEnv("BACKFILL_PAUSE", "100ms"),
		},
		Warehouse: WarehouseConfig{
			PostgresDSN:  getEnv("WAREHOUSE_PG_DSN", ""),
			StagingTable: getEnv("WAREHOUSE_STAGING_TABLE", "fb_ad_insights_staging"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if config.Facebook.AccessToken == "" {
		return nil, fmt.Errorf("FB_ACCESS_TOKEN is required")
	}
	if len(config.Extract.AccountIDs) == 0 {
		return nil, fmt.Errorf("AD_ACCOUNTS is required")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getSliceEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
