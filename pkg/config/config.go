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
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	// ServerURL prefixes media and profile picture links in push payloads.
	ServerURL string

	MongoURI      string
	MongoDatabase string
	PostgresURL   string

	RedisURL string
	CacheTTL time.Duration

	ElasticsearchURL string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	FirebaseCredentialsPath string
	PushTimeout             time.Duration

	JWTSecret   string
	JWTExpiry   time.Duration
	MetricsPort string

	// WSOriginPatterns lists the browser origins, besides the server's own
	// host, allowed to open websocket subscriptions.
	WSOriginPatterns []string
}

// Load reads the process environment, after merging a .env file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		ServerURL: withTrailingSlash(getEnv("SERVER_URL", "http://localhost:8080/api/v1/")),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "awlam"),
		PostgresURL:   getEnv("POSTGRES_CONN_STR", ""),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL: time.Duration(getIntEnv("CACHE_TTL", 10)) * time.Second,

		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "awlam-media"),
		MinIOUseSSL:    getBoolEnv("MINIO_USE_SSL", false),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PushTimeout:             getDurationEnv("PUSH_TIMEOUT", 10*time.Second),

		JWTSecret:   getEnv("JWT_SECRET", "supersecretjwtkey"),
		JWTExpiry:   getDurationEnv("JWT_EXPIRY", 72*time.Hour),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		WSOriginPatterns: getListEnv("WS_ORIGIN_PATTERNS", nil),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blank entries.
func getListEnv(key string, defaultValue []string) []string {
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

func withTrailingSlash(url string) string {
	if strings.HasSuffix(url, "/") {
		return url
	}
	return url + "/"
}
