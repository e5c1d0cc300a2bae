package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendDrive = "drive"
	BackendR2    = "r2"
	BackendLocal = "local"
)

type Config struct {
	Port       string
	AppBaseURL string
	LogLevel   string

	StoreBackend string

	DriveServiceAccountFile string
	DriveServiceAccountJSON string
	DriveChunkSizeMB        int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2S3Endpoint      string
	R2PartSizeMB      int

	LocalStoreDir string

	UploadLogPath       string
	UploadRatePerMinute int

	SessionSecret           string
	GoogleOAuthClientID     string
	GoogleOAuthClientSecret string
	AllowedDomains          []string
}

func Load() *Config {
	// Try to load .env file from the parent directory first
	envPath := filepath.Join("..", ".env")
	godotenv.Load(envPath)

	// Also try loading from current directory
	godotenv.Load(".env")

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		AppBaseURL:              getEnv("APP_BASE_URL", "http://localhost:8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		StoreBackend:            strings.ToLower(getEnv("STORE_BACKEND", BackendDrive)),
		DriveServiceAccountFile: getEnv("GDRIVE_SERVICE_ACCOUNT_FILE", ""),
		DriveServiceAccountJSON: getEnv("GDRIVE_SERVICE_ACCOUNT_JSON", ""),
		DriveChunkSizeMB:        getEnvInt("GDRIVE_UPLOAD_CHUNK_MB", 16),
		R2AccountID:             getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:           getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:       getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:                getEnv("R2_BUCKET", "driveup"),
		R2S3Endpoint:            getEnv("R2_S3_ENDPOINT", ""),
		R2PartSizeMB:            getEnvInt("R2_PART_SIZE_MB", 8),
		LocalStoreDir:           getEnv("LOCAL_STORE_DIR", "remote"),
		UploadLogPath:           getEnv("UPLOAD_LOG_PATH", "upload_log.jsonl"),
		UploadRatePerMinute:     getEnvInt("UPLOAD_RATE_PER_MINUTE", 6),
		SessionSecret:           getEnv("SESSION_SECRET", ""),
		GoogleOAuthClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleOAuthClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		AllowedDomains:          splitList(getEnv("ALLOWED_DOMAINS", "")),
	}
}

// AuthEnabled reports whether the web page sits behind Google sign-in.
func (c *Config) AuthEnabled() bool {
	return c.GoogleOAuthClientID != ""
}

// R2Endpoint returns the configured S3 endpoint, deriving the Cloudflare
// R2 endpoint from the account ID when none is set.
func (c *Config) R2Endpoint() string {
	if c.R2S3Endpoint != "" {
		return c.R2S3Endpoint
	}
	if c.R2AccountID != "" {
		return "https://" + c.R2AccountID + ".r2.cloudflarestorage.com"
	}
	return ""
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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
