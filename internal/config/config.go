package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendYouTube = "youtube"
	BackendYtDlp   = "ytdlp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Extractor ExtractorConfig
	Download  DownloadConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port     string
	Host     string
	LogLevel string
}

type APIConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type ExtractorConfig struct {
	Backend   string
	YtDlpPath string
	Timeout   time.Duration
	UserAgent string
}

type DownloadConfig struct {
	DownloadTimeout        time.Duration
	UpstreamHeaderTimeout  time.Duration
	UserAgent              string
	TLSFingerprint         bool
	MaxConcurrentDownloads int
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Profile          string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", getEnv("PORT", "3001"))
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// API configuration
	cfg.API.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 60)
	rateLimitWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	cfg.API.RateLimitWindow = rateLimitWindow

	// Extractor configuration
	cfg.Extractor.Backend = strings.ToLower(getEnv("EXTRACTOR_BACKEND", BackendYouTube))
	if cfg.Extractor.Backend != BackendYouTube && cfg.Extractor.Backend != BackendYtDlp {
		return nil, fmt.Errorf("invalid EXTRACTOR_BACKEND %q: expected %q or %q", cfg.Extractor.Backend, BackendYouTube, BackendYtDlp)
	}
	cfg.Extractor.YtDlpPath = getEnv("YTDLP_PATH", "yt-dlp")
	extractorTimeout, err := time.ParseDuration(getEnv("EXTRACTOR_TIMEOUT", "45s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACTOR_TIMEOUT: %w", err)
	}
	cfg.Extractor.Timeout = extractorTimeout
	cfg.Extractor.UserAgent = getEnv("EXTRACTOR_USER_AGENT", defaultUserAgent)

	// Download configuration
	downloadTimeout, err := time.ParseDuration(getEnv("DOWNLOAD_TIMEOUT", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_TIMEOUT: %w", err)
	}
	cfg.Download.DownloadTimeout = downloadTimeout
	headerTimeout, err := time.ParseDuration(getEnv("UPSTREAM_HEADER_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_HEADER_TIMEOUT: %w", err)
	}
	cfg.Download.UpstreamHeaderTimeout = headerTimeout
	cfg.Download.UserAgent = getEnv("UPSTREAM_USER_AGENT", defaultUserAgent)
	cfg.Download.TLSFingerprint = getEnvBool("UPSTREAM_TLS_FINGERPRINT", false)
	cfg.Download.MaxConcurrentDownloads = getEnvInt("MAX_CONCURRENT_DOWNLOADS", 16)
	if cfg.Download.MaxConcurrentDownloads < 1 {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_DOWNLOADS: must be at least 1")
	}

	// CORS configuration
	cfg.CORS = loadCORSConfig()

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", true)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(strings.TrimSpace(value), ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// loadCORSConfig loads CORS configuration based on profile or custom settings
func loadCORSConfig() CORSConfig {
	profile := getEnv("CORS_PROFILE", "custom")

	switch profile {
	case "development":
		return getDevelopmentCORSConfig()
	case "production":
		return getProductionCORSConfig()
	default:
		return getCustomCORSConfig()
	}
}

// getDevelopmentCORSConfig returns permissive CORS settings for local app builds
func getDevelopmentCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled: getEnvBool("CORS_ENABLED", true),
		AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:8081",
			"http://localhost:19006",
			"http://127.0.0.1:8081",
			"http://127.0.0.1:19006",
		}),
		AllowedMethods: getEnvStringSlice("CORS_ALLOWED_METHODS", []string{
			"GET", "POST", "OPTIONS",
		}),
		AllowedHeaders: getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{
			"Origin", "Content-Type", "Accept", "Authorization", "X-Correlation-ID",
		}),
		ExposedHeaders: getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{
			"Content-Disposition", "Content-Length", "X-Request-ID",
		}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
		Profile:          "development",
	}
}

// getProductionCORSConfig returns locked-down CORS settings
func getProductionCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:          getEnvBool("CORS_ENABLED", true),
		AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{}),
		AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept"}),
		ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Disposition", "Content-Length"}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
		Profile:          "production",
	}
}

// getCustomCORSConfig mirrors the mobile backend: any origin, no credentials
func getCustomCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:          getEnvBool("CORS_ENABLED", true),
		AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Accept"}),
		ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Disposition", "Content-Length"}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
		Profile:          "custom",
	}
}
