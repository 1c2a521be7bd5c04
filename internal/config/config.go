package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI string
	DBName   string
	Port     string

	SessionTTL     time.Duration
	OtpTTL         time.Duration
	OtpMaxAttempts int

	ChatWindowSize int
	MemoryLimit    int
	MemorySlice    int

	MistralBaseURL string
	MistralAPIKey  string
	MistralModel   string

	SendgridBaseURL string
	SendgridAPIKey  string
	SendgridFrom    string

	WeatherBaseURL string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI: getEnvOrDefault("MONGO_URI", ""),
		DBName:   getEnvOrDefault("DB_NAME", "krushimitra"),
		Port:     getEnvOrDefault("PORT", "3001"),

		SessionTTL:     getDurationEnv("SESSION_TTL_DAYS", 30, 24*time.Hour),
		OtpTTL:         getDurationEnv("OTP_TTL_MINUTES", 10, time.Minute),
		OtpMaxAttempts: getIntEnv("OTP_MAX_ATTEMPTS", 3),

		ChatWindowSize: getIntEnv("CHAT_WINDOW_SIZE", 5),
		MemoryLimit:    getIntEnv("AI_MEMORY_LIMIT", 200),
		MemorySlice:    getIntEnv("AI_MEMORY_SLICE", 10),

		MistralBaseURL: getEnvOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai"),
		MistralAPIKey:  getEnvOrDefault("MISTRAL_API_KEY", ""),
		MistralModel:   getEnvOrDefault("MISTRAL_MODEL", "mistral-small-latest"),

		SendgridBaseURL: getEnvOrDefault("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		SendgridAPIKey:  getEnvOrDefault("SENDGRID_API_KEY", ""),
		SendgridFrom:    getEnvOrDefault("SENDGRID_FROM", ""),

		WeatherBaseURL: getEnvOrDefault("WEATHER_BASE_URL", "https://api.open-meteo.com"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
