// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFormat is the format selector used when a request does not supply one.
// It prioritizes MP4 so results play on the widest range of clients.
const DefaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port         int
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Authentication
	APIPassword string

	// Retrieval settings
	DownloadsDir     string
	OutputTemplate   string
	DefaultRetries   int
	WorkerPoolSize   int
	FetchTimeout     time.Duration // 0 disables the per-retrieval timeout
	YtdlpAutoInstall bool

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	port := getEnvInt("PORT", 8000)
	downloadsDir := getEnvString("DOWNLOADS_DIR", "downloads")

	return &Config{
		Port:             port,
		BaseURL:          getEnvString("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		ReadTimeout:      getEnvDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:     getEnvDuration("WRITE_TIMEOUT", 0), // downloads can run long
		IdleTimeout:      getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		APIPassword:      os.Getenv("API_PASSWORD"),
		DownloadsDir:     downloadsDir,
		OutputTemplate:   getEnvString("OUTPUT_TEMPLATE", filepath.Join(downloadsDir, "%(title)s.%(ext)s")),
		DefaultRetries:   getEnvInt("DEFAULT_RETRIES", 5),
		WorkerPoolSize:   getEnvInt("WORKER_POOL_SIZE", 4),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 0),
		YtdlpAutoInstall: getEnvBool("YTDLP_AUTO_INSTALL", true),
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
		LogJSON:          getEnvBool("LOG_JSON", false),
	}
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		// Try parsing as duration string
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
