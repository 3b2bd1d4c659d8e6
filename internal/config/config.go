// Package config provides environment-driven configuration for the application
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance.
// If the configuration has not been initialized, it will return an error.
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	Gateway   GatewayConfig
	Ollama    OllamaConfig
	Database  DatabaseConfig
	Workspace WorkspaceConfig
	Logging   LoggingConfig

	configDir string // Internal: directory the config was loaded from
}

// GatewayConfig configures the command gateway transport
type GatewayConfig struct {
	// Endpoint is the base URL of a remote core service. When empty the
	// in-process local core is used instead.
	Endpoint string

	Timeout       time.Duration // Per-call request timeout
	ReadyTimeout  time.Duration // Maximum time to wait for the service at startup
	RatePerSecond float64       // Client-side command rate limit
	RateBurst     int           // Rate limiter burst size
}

// OllamaConfig configures the local core's Ollama client
type OllamaConfig struct {
	Endpoint       string        // Ollama API endpoint URL
	Timeout        time.Duration // Request timeout
	MaxRetries     int           // Health probe retries
	EmbeddingModel string        // Model used for evidence index embeddings
}

// DatabaseConfig configures how the local core opens workspace files
type DatabaseConfig struct {
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	QueryTimeout    time.Duration // Query timeout
}

// WorkspaceConfig configures workspace session handling
type WorkspaceConfig struct {
	DefaultPath string // Default workspace database file
	StatePath   string // Where the local core persists current/recent paths
	MaxRecent   int    // How many recent workspace paths to keep
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// New creates a configuration populated with defaults. Paths that depend
// on the config directory are filled in by LoadFromEnv.
func New() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Timeout:       30 * time.Second,
			ReadyTimeout:  10 * time.Second,
			RatePerSecond: 20,
			RateBurst:     5,
		},
		Ollama: OllamaConfig{
			Endpoint:       "http://localhost:11434",
			Timeout:        60 * time.Second,
			MaxRetries:     3,
			EmbeddingModel: "nomic-embed-text",
		},
		Database: DatabaseConfig{
			JournalMode:     "WAL",
			SynchronousMode: "NORMAL",
			BusyTimeout:     5000,
			ForeignKeys:     true,
			QueryTimeout:    30 * time.Second,
		},
		Workspace: WorkspaceConfig{
			MaxRecent: 8,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			AddSource:  true,
			TimeFormat: time.RFC3339,
		},
	}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// LogFilePath returns the default log file path inside the config directory
func (c *Config) LogFilePath() string {
	return filepath.Join(c.configDir, "incidentdeck.log")
}

// ParseLogLevel converts a string log level to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
