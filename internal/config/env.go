// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "SCHOOL_PORT"
	EnvLogLevel        = "SCHOOL_LOG_LEVEL"
	EnvShutdownTimeout = "SCHOOL_SHUTDOWN_TIMEOUT"

	// School
	EnvSchoolName = "SCHOOL_NAME"
	EnvSchoolCCT  = "SCHOOL_CCT"

	// Data
	EnvDataDir        = "SCHOOL_DATA_DIR"
	EnvDatabasePath   = "SCHOOL_DATABASE_PATH"
	EnvConstanciasDir = "SCHOOL_CONSTANCIAS_DIR"
	EnvTempDir        = "SCHOOL_TEMP_DIR"

	// LLM
	EnvLLMProviders       = "SCHOOL_LLM_PROVIDERS"
	EnvLLMTimeout         = "SCHOOL_LLM_TIMEOUT"
	EnvLLMRetryAttempts   = "SCHOOL_LLM_RETRY_ATTEMPTS"
	EnvLLMTemperature     = "SCHOOL_LLM_TEMPERATURE"
	EnvLLMMaxOutputTokens = "SCHOOL_LLM_MAX_OUTPUT_TOKENS"
	EnvGeminiAPIKey       = "SCHOOL_GEMINI_API_KEY"
	EnvGeminiModels       = "SCHOOL_GEMINI_MODELS"
	EnvGroqAPIKey         = "SCHOOL_GROQ_API_KEY"
	EnvGroqModels         = "SCHOOL_GROQ_MODELS"
	EnvCerebrasAPIKey     = "SCHOOL_CEREBRAS_API_KEY"
	EnvCerebrasModels     = "SCHOOL_CEREBRAS_MODELS"
	EnvOpenAIAPIKey       = "SCHOOL_OPENAI_API_KEY"
	EnvOpenAIEndpoint     = "SCHOOL_OPENAI_ENDPOINT"
	EnvOpenAIModels       = "SCHOOL_OPENAI_MODELS"

	// Chat
	EnvStackCapacity   = "SCHOOL_STACK_CAPACITY"
	EnvPageSize        = "SCHOOL_PAGE_SIZE"
	EnvSessionIdleTTL  = "SCHOOL_SESSION_IDLE_TTL"
	EnvJanitorInterval = "SCHOOL_JANITOR_INTERVAL"

	// LLM quota per session
	EnvLLMRateBurst  = "SCHOOL_LLM_RATE_BURST"
	EnvLLMRateRefill = "SCHOOL_LLM_RATE_REFILL"
	EnvLLMRateDaily  = "SCHOOL_LLM_RATE_DAILY"

	// Constancia tooling
	EnvConverterCommand = "SCHOOL_PDF_CONVERTER"
	EnvExtractorCommand = "SCHOOL_PDF_EXTRACTOR"
	EnvOpenerCommand    = "SCHOOL_FILE_OPENER"

	// Archive (S3 / R2)
	EnvArchiveEnabled         = "SCHOOL_ARCHIVE_ENABLED"
	EnvArchiveEndpoint        = "SCHOOL_ARCHIVE_ENDPOINT"
	EnvArchiveAccountID       = "SCHOOL_ARCHIVE_ACCOUNT_ID"
	EnvArchiveAccessKeyID     = "SCHOOL_ARCHIVE_ACCESS_KEY_ID"
	EnvArchiveSecretAccessKey = "SCHOOL_ARCHIVE_SECRET_ACCESS_KEY"
	EnvArchiveBucket          = "SCHOOL_ARCHIVE_BUCKET"
	EnvArchivePrefix          = "SCHOOL_ARCHIVE_PREFIX"

	// Sentry
	EnvSentryDSN              = "SCHOOL_SENTRY_DSN"
	EnvSentryEnvironment      = "SCHOOL_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "SCHOOL_SENTRY_RELEASE"
	EnvSentrySampleRate       = "SCHOOL_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "SCHOOL_SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "SCHOOL_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "SCHOOL_BETTERSTACK_ENDPOINT"

	// Metrics Auth
	EnvMetricsUsername = "SCHOOL_METRICS_USERNAME"
	EnvMetricsPassword = "SCHOOL_METRICS_PASSWORD"
)
