package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data must be provided via the environment; the only hard
// requirement is JWT_SECRET.
type AppConfig struct {
	AppPort string
	GinMode string

	JWTSecret string

	// AWS / store configuration. Endpoint and static credentials are only
	// needed when pointing at a local DynamoDB or MinIO stack.
	AWSRegion        string
	AWSEndpoint      string
	AWSAccessKeyID   string
	AWSSecretKey     string
	UsersTable       string
	PostsTable       string
	CommentsTable    string
	PostImagesBucket string

	AllowedOrigins []string

	// Logging configuration
	LogLevel      string
	LogPath       string
	GinLogPath    string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads the application configuration from environment variables.
// It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	cfg = AppConfig{
		AppPort: getEnv("APP_PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:      os.Getenv("AWS_ENDPOINT"),
		AWSAccessKeyID:   os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		UsersTable:       getEnv("USERS_TABLE", "skyposts-users"),
		PostsTable:       getEnv("POSTS_TABLE", "skyposts-posts"),
		CommentsTable:    getEnv("COMMENTS_TABLE", "skyposts-comments"),
		PostImagesBucket: getEnv("POST_IMAGES_BUCKET", "skyposts-images"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", "logs/app.log"),
		GinLogPath:    getEnv("GIN_LOG_PATH", "logs/access.log"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:   getEnvBool("LOG_COMPRESS", false),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
