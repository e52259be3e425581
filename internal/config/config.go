package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string

	// LLM providers. Keys are checked when a call is made, not at startup.
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIChatModel   string
	OpenAIReportModel string
	PerplexityAPIKey  string
	PerplexityBaseURL string
	PerplexityModel   string
	LLMTimeout        time.Duration

	// Reports store
	DatabaseURL          string
	ReportsNotifyChannel string

	// Context cache
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ContextCacheTTL time.Duration

	ContextEnabled      bool
	CompanyContextDays  int
	PersonalContextDays int

	// Empty means the embedded catalog.
	AssessmentCatalogPath string
}

// Load reads configuration from environment variables
func Load() *Config {
	chatModel := getEnv("OPENAI_MODEL_CHAT", "gpt-4")
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:   chatModel,
		OpenAIReportModel: getEnv("OPENAI_MODEL_REPORT", chatModel),
		PerplexityAPIKey:  getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		PerplexityModel:   getEnv("PERPLEXITY_MODEL", "sonar"),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),

		DatabaseURL:          getEnv("DATABASE_URL", ""),
		ReportsNotifyChannel: getEnv("REPORTS_NOTIFY_CHANNEL", "wellness_reports"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		ContextCacheTTL: getEnvAsDuration("CONTEXT_CACHE_TTL", 5*time.Minute),

		ContextEnabled:      getEnvAsBool("CONTEXT_ENABLED", true),
		CompanyContextDays:  getEnvAsInt("COMPANY_CONTEXT_DAYS", 7),
		PersonalContextDays: getEnvAsInt("PERSONAL_CONTEXT_DAYS", 30),

		AssessmentCatalogPath: getEnv("ASSESSMENT_CATALOG_PATH", ""),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
