package platform

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds everything read from the environment at startup.
type AppConfig struct {
	Port              string
	LogPath           string
	LogLevel          string
	CORSOrigin        string
	DB                Config
	LLMBaseURL        string
	AllowedModelTypes []string
	CredentialTTL     time.Duration
	RetentionDays     int
	RetentionCron     string
}

var defaultModelTypes = []string{"LLM", "UNKNOWN"}

// LoadConfig reads the process environment. godotenv should already have
// populated it from .env.
func LoadConfig() AppConfig {
	return AppConfig{
		Port:       getEnv("PORT", "8080"),
		LogPath:    getEnv("LOG_PATH", "./log"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost"),
		DB: Config{
			Driver:     getEnv("DB_DRIVER", "mysql"),
			Host:       os.Getenv("SQL_HOST"),
			Port:       os.Getenv("SQL_PORT"),
			User:       os.Getenv("SQL_USER"),
			Password:   os.Getenv("SQL_PASSWORD"),
			DBName:     os.Getenv("SQL_DBNAME"),
			SQLitePath: getEnv("SQLITE_PATH", "data/gateway.db"),
		},
		LLMBaseURL:        os.Getenv("LLM_BASE_URL"),
		AllowedModelTypes: ParseModelTypes(os.Getenv("ALLOWED_MODEL_TYPES")),
		CredentialTTL:     getDuration("CREDENTIAL_CACHE_TTL", 5*time.Minute),
		RetentionDays:     getInt("CHAT_RETENTION_DAYS", 0),
		RetentionCron:     getEnv("RETENTION_CRON", "30 3 * * *"),
	}
}

// ParseModelTypes splits a comma separated list into upper-cased model types.
// An empty list falls back to LLM and UNKNOWN.
func ParseModelTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultModelTypes...)
	}
	var types []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			types = append(types, t)
		}
	}
	return types
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
