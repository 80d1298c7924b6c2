// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	AllowedOrigins    []string
	Environment       string
	InngestEventKey   string
	InngestSigningKey string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	DatabaseURL       string
	Database          DatabaseConfig
	Redis             RedisConfig
	Analysis          AnalysisConfig
	Provider          ProviderConfig
	Log               LogConfig
	Alerts            AlertsConfig
	Refresh           RefreshConfig
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RedisConfig is optional; an empty Addr disables the sentiment cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
	TTL      time.Duration
}

type AnalysisConfig struct {
	DefaultModel    string
	SentimentModel  string
	Mode            string
	MaxConcurrency  int
	Timeout         time.Duration
	MaxOutputTokens int
}

type ProviderConfig struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
}

// AlertsConfig is optional; an empty webhook disables failure alerts.
type AlertsConfig struct {
	SlackWebhookURL string
}

// RefreshConfig drives the scheduled re-analysis of tracked brands.
type RefreshConfig struct {
	Enabled bool
	Cron    string
	Window  time.Duration
	Limit   int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	// Parse database configuration
	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Enabled:         os.Getenv("DB_HOST") != "",
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "senso_visibility"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	config.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		Prefix:   getEnv("REDIS_PREFIX", "visibility:"),
		TTL:      time.Duration(getEnvInt("SENTIMENT_CACHE_TTL_HOURS", 24)) * time.Hour,
	}

	config.Analysis = AnalysisConfig{
		DefaultModel:    getEnv("DEFAULT_MODEL", "gpt-4.1-mini"),
		SentimentModel:  os.Getenv("SENTIMENT_MODEL"),
		Mode:            getEnv("ANALYSIS_MODE", "sentence"),
		MaxConcurrency:  getEnvInt("ANALYSIS_MAX_CONCURRENCY", 4),
		Timeout:         time.Duration(getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 90)) * time.Second,
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 1000),
	}

	config.Provider = ProviderConfig{
		MaxAttempts:      getEnvInt("PROVIDER_MAX_ATTEMPTS", 3),
		InitialBackoff:   time.Duration(getEnvInt("PROVIDER_INITIAL_BACKOFF_MS", 1000)) * time.Millisecond,
		MaxBackoff:       time.Duration(getEnvInt("PROVIDER_MAX_BACKOFF_MS", 8000)) * time.Millisecond,
		RateLimitRPS:     getEnvFloat("PROVIDER_RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getEnvInt("PROVIDER_RATE_LIMIT_BURST", 5),
		BreakerFailures:  getEnvInt("PROVIDER_BREAKER_FAILURES", 5),
		BreakerOpenDelay: time.Duration(getEnvInt("PROVIDER_BREAKER_OPEN_SECONDS", 30)) * time.Second,
	}

	config.Log = LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	config.Alerts = AlertsConfig{
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}

	config.Refresh = RefreshConfig{
		Enabled: getEnvBool("REFRESH_ENABLED", false),
		Cron:    getEnv("REFRESH_CRON", "0 6 * * *"),
		Window:  time.Duration(getEnvInt("REFRESH_WINDOW_DAYS", 7)) * 24 * time.Hour,
		Limit:   getEnvInt("REFRESH_LIMIT", 50),
	}

	return config
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if len(parsedURL.Path) < 2 {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL has no database name")
	}

	config := DatabaseConfig{
		Enabled:         true,
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            parsedURL.Path[1:], // remove leading slash
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
