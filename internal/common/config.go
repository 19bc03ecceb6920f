package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	Server   ServerConfig
	PDF      PDFConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend     string // json | postgres | sqlite
	DataDir     string
	ReportsRoot string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string // health only; empty disables

	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	QueueWorkers    int
}

// PDFConfig holds text extraction configuration
type PDFConfig struct {
	Pdftotext      string
	EnableFallback bool
	ValidatePDF    bool
	MaxPages       int
	CommandTimeout time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model          string
	APIKey         string
	BaseURL        string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// PipelineConfig holds batch run configuration
type PipelineConfig struct {
	ChunkSize         int
	BatchSize         int
	Workers           int
	InterCallDelay    time.Duration
	DocumentDelay     time.Duration
	ProcessingVersion string
	TuningFile        string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", "json")),
			DataDir:     getEnv("DATA_DIR", "./data"),
			ReportsRoot: getEnv("REPORTS_ROOT", "."),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./data/catalog.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ""),

			AllowedOrigins:  splitEnv("CORS_ORIGINS", "*"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			QueueWorkers:    getEnvAsInt("QUEUE_WORKERS", 1),
		},
		PDF: PDFConfig{
			Pdftotext:      getEnv("PDFTOTEXT_BIN", "pdftotext"),
			EnableFallback: getEnvAsBool("PDFTOTEXT_FALLBACK", true),
			ValidatePDF:    getEnvAsBool("PDF_VALIDATE", true),
			MaxPages:       getEnvAsInt("PDF_MAX_PAGES", 0),
			CommandTimeout: getEnvAsDuration("PDF_COMMAND_TIMEOUT", 2*time.Minute),
		},
		LLM: LLMConfig{
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:         getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			Temperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
			MaxAttempts:    getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryBaseDelay: getEnvAsDuration("LLM_RETRY_DELAY", 2*time.Second),
		},
		Pipeline: PipelineConfig{
			ChunkSize:         getEnvAsInt("CHUNK_SIZE", 100000),
			BatchSize:         getEnvAsInt("BATCH_SIZE", 10),
			Workers:           getEnvAsInt("WORKERS", 1),
			InterCallDelay:    getEnvAsDuration("INTER_CALL_DELAY", time.Second),
			DocumentDelay:     getEnvAsDuration("DOCUMENT_DELAY", 2*time.Second),
			ProcessingVersion: getEnv("PROCESSING_VERSION", constants.ProcessingVersion),
			TuningFile:        getEnv("TUNING_FILE", ""),
		},
	}
}

// Helper functions for environment variable parsing

func splitEnv(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. LLM settings are checked
// separately by ValidateLLM because indexing and export do not need them.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json":
		if c.Store.DataDir == "" {
			return NewAppError("CONFIG_ERROR", "DATA_DIR is required for the json store", ErrInvalidInput)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required for the sqlite store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STORE_BACKEND must be one of json, postgres, sqlite", ErrInvalidInput)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return NewAppError("CONFIG_ERROR", "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Pipeline.BatchSize <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}

func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY (or OPENAI_API_KEY) is required", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts <= 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_ATTEMPTS must be positive", ErrInvalidInput)
	}
	return nil
}
