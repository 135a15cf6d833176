package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultAPIBaseURL = "http://127.0.0.1:8000"

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Planner
	LLMProvider           string
	OpenAIAPIKey          string
	OpenAIModel           string
	GeminiAPIKey          string
	GeminiModel           string
	OllamaHost            string
	OllamaModel           string
	LLMConcurrentRequests int

	// Agent
	DemoMode          bool
	Timezone          string
	ReminderRecipient string
	ReminderWorkers   int

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

// ClientConfig is resolved once at process start and handed to planpal.NewClient.
type ClientConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8000"),
		Env:                   getEnvOrDefault("ENV", "development"),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		LLMProvider:           strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:          getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaHost:            getEnvOrDefault("OLLAMA_HOST", "http://127.0.0.1:11434"),
		OllamaModel:           getEnvOrDefault("OLLAMA_MODEL", "llama3.1"),
		LLMConcurrentRequests: getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		DemoMode:              getEnvAsBoolOrDefault("PLANPAL_DEMO_MODE", false),
		Timezone:              getEnvOrDefault("PLANPAL_TIMEZONE", "UTC"),
		ReminderRecipient:     getEnvOrDefault("REMINDER_RECIPIENT", "you@demo.local"),
		ReminderWorkers:       getEnvAsIntOrDefault("REMINDER_WORKERS", 3),
		SMTPHost:              getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:              getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:              getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:              getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:              getEnvOrDefault("SMTP_FROM", "noreply@planpal.local"),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func LoadClient() ClientConfig {
	godotenv.Load()

	return ClientConfig{
		BaseURL:     getEnvOrDefault("PLANPAL_API_BASE_URL", DefaultAPIBaseURL),
		HTTPTimeout: time.Duration(getEnvAsIntOrDefault("PLANPAL_HTTP_TIMEOUT_SECONDS", 0)) * time.Second,
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
