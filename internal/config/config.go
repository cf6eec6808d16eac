// Package config provides application configuration management.
// It loads settings from environment variables (optionally via a .env file)
// and provides defaults for the chat engine, LLM providers and storage paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// School identity, frozen into prompts and constancia headers
	SchoolName string
	SchoolCCT  string

	// Data Configuration
	DataDir        string // Directory holding the SQLite database
	DatabasePath   string // Explicit database path (default: DataDir/escuela.db)
	ConstanciasDir string // Where saved constancias are written (option 1)
	TempDir        string // Where previews are rendered before a decision

	LLM        LLMConfig
	Chat       ChatConfig
	Constancia ConstanciaConfig
	Archive    ArchiveConfig

	// Sentry Configuration
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64

	// Better Stack Configuration
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// LLMConfig holds provider credentials and the model chain per provider.
type LLMConfig struct {
	Providers       []string // Provider order: gemini, groq, cerebras, openai
	Timeout         time.Duration
	RetryAttempts   int // Attempts per model, including the first
	Temperature     float64
	MaxOutputTokens int

	GeminiAPIKey   string
	GeminiModels   []string
	GroqAPIKey     string
	GroqModels     []string
	CerebrasAPIKey string
	CerebrasModels []string
	OpenAIAPIKey   string
	OpenAIEndpoint string // Any OpenAI-compatible base URL
	OpenAIModels   []string
}

// ChatConfig holds conversation and session settings.
type ChatConfig struct {
	StackCapacity   int // Turns kept per session (default: 10)
	PageSize        int // Max rows listed in one reply (default: 50)
	SessionIdleTTL  time.Duration
	JanitorInterval time.Duration

	// LLM quota per session (token bucket + daily cap)
	LLMBurstTokens     float64
	LLMRefillPerMinute float64
	LLMDailyLimit      int // 0 = disabled
}

// ConstanciaConfig names the external tools the constancia adapter runs.
type ConstanciaConfig struct {
	ConverterCommand string // HTML to PDF, e.g. wkhtmltopdf
	ExtractorCommand string // PDF to text, e.g. pdftotext
	OpenerCommand    string // Empty selects the platform default
}

// ArchiveConfig holds S3-compatible bucket settings for archiving saved constancias.
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string // Explicit endpoint; derived from AccountID for R2 when empty
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first; a missing file is ignored.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load()
}

// LoadFile loads the named env file (it must exist) and then reads the environment.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}
	return load()
}

func load() (*Config, error) {
	dataDir := getEnv(EnvDataDir, getDefaultDataDir())

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		SchoolName: getEnv(EnvSchoolName, "Escuela Primaria"),
		SchoolCCT:  getEnv(EnvSchoolCCT, ""),

		DataDir:        dataDir,
		DatabasePath:   getEnv(EnvDatabasePath, filepath.Join(dataDir, "escuela.db")),
		ConstanciasDir: getEnv(EnvConstanciasDir, "constancias"),
		TempDir:        getEnv(EnvTempDir, filepath.Join(os.TempDir(), "school-previews")),

		LLM: LLMConfig{
			Providers:       lowerAll(getStringSliceEnv(EnvLLMProviders, []string{"gemini", "groq"})),
			Timeout:         getDurationEnv(EnvLLMTimeout, LLMRequest),
			RetryAttempts:   getIntEnv(EnvLLMRetryAttempts, 2),
			Temperature:     getFloatEnv(EnvLLMTemperature, 0.1),
			MaxOutputTokens: getIntEnv(EnvLLMMaxOutputTokens, 1024),
			GeminiAPIKey:    getEnv(EnvGeminiAPIKey, ""),
			GeminiModels:    getStringSliceEnv(EnvGeminiModels, nil),
			GroqAPIKey:      getEnv(EnvGroqAPIKey, ""),
			GroqModels:      getStringSliceEnv(EnvGroqModels, nil),
			CerebrasAPIKey:  getEnv(EnvCerebrasAPIKey, ""),
			CerebrasModels:  getStringSliceEnv(EnvCerebrasModels, nil),
			OpenAIAPIKey:    getEnv(EnvOpenAIAPIKey, ""),
			OpenAIEndpoint:  getEnv(EnvOpenAIEndpoint, ""),
			OpenAIModels:    getStringSliceEnv(EnvOpenAIModels, nil),
		},

		Chat: ChatConfig{
			StackCapacity:      getIntEnv(EnvStackCapacity, 10),
			PageSize:           getIntEnv(EnvPageSize, 50),
			SessionIdleTTL:     getDurationEnv(EnvSessionIdleTTL, SessionIdleTTL),
			JanitorInterval:    getDurationEnv(EnvJanitorInterval, JanitorInterval),
			LLMBurstTokens:     getFloatEnv(EnvLLMRateBurst, 20),
			LLMRefillPerMinute: getFloatEnv(EnvLLMRateRefill, 6),
			LLMDailyLimit:      getIntEnv(EnvLLMRateDaily, 500),
		},

		Constancia: ConstanciaConfig{
			ConverterCommand: getEnv(EnvConverterCommand, "wkhtmltopdf"),
			ExtractorCommand: getEnv(EnvExtractorCommand, "pdftotext"),
			OpenerCommand:    getEnv(EnvOpenerCommand, ""),
		},

		Archive: ArchiveConfig{
			Enabled:         getBoolEnv(EnvArchiveEnabled, false),
			Endpoint:        getEnv(EnvArchiveEndpoint, ""),
			AccountID:       getEnv(EnvArchiveAccountID, ""),
			AccessKeyID:     getEnv(EnvArchiveAccessKeyID, ""),
			SecretAccessKey: getEnv(EnvArchiveSecretAccessKey, ""),
			Bucket:          getEnv(EnvArchiveBucket, ""),
			Prefix:          getEnv(EnvArchivePrefix, "constancias/"),
		},

		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("SCHOOL_PORT is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("SCHOOL_DATABASE_PATH is required"))
	}
	if c.ConstanciasDir == "" {
		errs = append(errs, errors.New("SCHOOL_CONSTANCIAS_DIR is required"))
	}
	if c.TempDir == "" {
		errs = append(errs, errors.New("SCHOOL_TEMP_DIR is required"))
	}
	if c.TempDir != "" && filepath.Clean(c.TempDir) == filepath.Clean(c.ConstanciasDir) {
		errs = append(errs, errors.New("SCHOOL_TEMP_DIR must differ from SCHOOL_CONSTANCIAS_DIR"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm config: %w", err))
	}
	if err := c.Chat.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chat config: %w", err))
	}
	if err := c.Archive.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("archive config: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks LLM settings.
func (c LLMConfig) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_TIMEOUT must be positive, got %v", c.Timeout))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_TEMPERATURE must be within [0, 2], got %v", c.Temperature))
	}
	for _, p := range c.Providers {
		switch p {
		case "gemini", "groq", "cerebras", "openai":
		default:
			errs = append(errs, fmt.Errorf("unknown LLM provider %q", p))
		}
	}
	if c.OpenAIAPIKey != "" && c.OpenAIEndpoint == "" {
		errs = append(errs, errors.New("SCHOOL_OPENAI_ENDPOINT is required when SCHOOL_OPENAI_API_KEY is set"))
	}
	return errors.Join(errs...)
}

// Validate checks chat and quota settings.
func (c ChatConfig) Validate() error {
	var errs []error
	if c.StackCapacity < 1 {
		errs = append(errs, fmt.Errorf("SCHOOL_STACK_CAPACITY must be at least 1, got %d", c.StackCapacity))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("SCHOOL_PAGE_SIZE must be at least 1, got %d", c.PageSize))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_SESSION_IDLE_TTL must be positive, got %v", c.SessionIdleTTL))
	}
	if c.JanitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_JANITOR_INTERVAL must be positive, got %v", c.JanitorInterval))
	}
	if c.LLMBurstTokens <= 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_RATE_BURST must be positive, got %v", c.LLMBurstTokens))
	}
	if c.LLMRefillPerMinute < 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_RATE_REFILL cannot be negative, got %v", c.LLMRefillPerMinute))
	}
	if c.LLMDailyLimit < 0 {
		errs = append(errs, fmt.Errorf("SCHOOL_LLM_RATE_DAILY cannot be negative, got %d", c.LLMDailyLimit))
	}
	return errors.Join(errs...)
}

// Validate checks archive settings only when archiving is enabled.
func (c ArchiveConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Endpoint == "" && c.AccountID == "" {
		errs = append(errs, errors.New("SCHOOL_ARCHIVE_ENDPOINT or SCHOOL_ARCHIVE_ACCOUNT_ID is required"))
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		errs = append(errs, errors.New("archive credentials are required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("SCHOOL_ARCHIVE_BUCKET is required"))
	}
	return errors.Join(errs...)
}

// HasLLMProvider returns true if at least one LLM provider has credentials.
func (c *Config) HasLLMProvider() bool {
	return c.LLM.GeminiAPIKey != "" || c.LLM.GroqAPIKey != "" ||
		c.LLM.CerebrasAPIKey != "" || c.LLM.OpenAIAPIKey != ""
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma-separated variable, dropping empty items.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToLower(item)
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return ".\\data"
	}
	return "./data"
}
