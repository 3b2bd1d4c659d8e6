package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables.
// configDir may be empty to use the default (~/.incidentdeck); an optional
// .env file inside the config directory is loaded first when present.
func LoadFromEnv(configDir string) (*Config, error) {
	cfg := New()

	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".incidentdeck")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	cfg.configDir = configDir

	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil {
			// Fall back to a .env in the working directory, if any
			_ = godotenv.Load()
		}
	}

	cfg.Gateway = GatewayConfig{
		Endpoint:      getEnvString("INCIDENTDECK_CORE_ENDPOINT", ""),
		Timeout:       getEnvDuration("INCIDENTDECK_CORE_TIMEOUT", 30*time.Second),
		ReadyTimeout:  getEnvDuration("INCIDENTDECK_CORE_READY_TIMEOUT", 10*time.Second),
		RatePerSecond: getEnvFloat("INCIDENTDECK_CORE_RATE_PER_SECOND", 20),
		RateBurst:     getEnvInt("INCIDENTDECK_CORE_RATE_BURST", 5),
	}

	cfg.Ollama = OllamaConfig{
		Endpoint:       getEnvString("INCIDENTDECK_OLLAMA_ENDPOINT", "http://localhost:11434"),
		Timeout:        getEnvDuration("INCIDENTDECK_OLLAMA_TIMEOUT", 60*time.Second),
		MaxRetries:     getEnvInt("INCIDENTDECK_OLLAMA_MAX_RETRIES", 3),
		EmbeddingModel: getEnvString("INCIDENTDECK_OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
	}

	cfg.Database = DatabaseConfig{
		JournalMode:     getEnvString("INCIDENTDECK_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("INCIDENTDECK_DB_SYNCHRONOUS", "NORMAL"),
		BusyTimeout:     getEnvInt("INCIDENTDECK_DB_BUSY_TIMEOUT", 5000),
		ForeignKeys:     getEnvBool("INCIDENTDECK_DB_FOREIGN_KEYS", true),
		QueryTimeout:    getEnvDuration("INCIDENTDECK_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	cfg.Workspace = WorkspaceConfig{
		DefaultPath: getEnvString("INCIDENTDECK_WORKSPACE_PATH", filepath.Join(configDir, "incidentreview.sqlite")),
		StatePath:   getEnvString("INCIDENTDECK_STATE_PATH", filepath.Join(configDir, "session.json")),
		MaxRecent:   getEnvInt("INCIDENTDECK_WORKSPACE_MAX_RECENT", 8),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("INCIDENTDECK_LOG_LEVEL", "info"),
		Format:     getEnvString("INCIDENTDECK_LOG_FORMAT", "text"),
		Output:     getEnvString("INCIDENTDECK_LOG_OUTPUT", cfg.LogFilePath()),
		AddSource:  getEnvBool("INCIDENTDECK_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("INCIDENTDECK_LOG_TIME_FORMAT", time.RFC3339),
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
