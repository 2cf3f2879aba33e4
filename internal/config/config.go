// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, upload limits, model access,
// context budgets, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "askmynotes-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LLMConfig defines access to the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL      string        // LLM_BASE_URL (e.g. https://api.groq.com/openai/v1)
	APIKey       string        // LLM_API_KEY
	ChatModel    string        // LLM_CHAT_MODEL, used for answer mode
	StudyModel   string        // LLM_STUDY_MODEL, used for summarize/practice
	Temperature  float64       // LLM_TEMPERATURE in [0..2]
	Timeout      time.Duration // MODEL_TIMEOUT per model call
	ParseRetries int           // MODEL_PARSE_RETRIES extra attempts on unparsable output
}

// Enabled reports whether a model endpoint is configured.
func (c LLMConfig) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

// UploadConfig bounds upload batches.
type UploadConfig struct {
	MaxFiles     int    // UPLOAD_MAX_FILES
	MaxFileBytes int64  // UPLOAD_MAX_FILE_BYTES
	TempDir      string // UPLOAD_TEMP_DIR, staging area for uploaded files
}

// ContextConfig holds the character budgets used when assembling notes.
type ContextConfig struct {
	AnswerBudget int // CONTEXT_BUDGET_ANSWER
	StudyBudget  int // CONTEXT_BUDGET_STUDY
}

// GCSConfig enables the optional raw-file copy in Google Cloud Storage.
type GCSConfig struct {
	Bucket       string // GCS_BUCKET; empty disables blob storage
	EmulatorHost string // GCS_EMULATOR_HOST (e.g. http://localhost:4443)
}

// RedisConfig enables the optional assembled-context cache.
type RedisConfig struct {
	Addr       string        // REDIS_ADDR; empty disables the cache
	Password   string        // REDIS_PASSWORD
	DB         int           // REDIS_DB
	ContextTTL time.Duration // REDIS_CONTEXT_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 120s, model calls are slow
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Notes pipeline
	LLM            LLMConfig
	Upload         UploadConfig
	Context        ContextConfig
	HistoryTimeout time.Duration // detached history write deadline

	// Optional integrations
	GCS   GCSConfig
	Redis RedisConfig

	// Rate limiting
	RateRPS        float64 // tokens per second (>= 0)
	RateBurst      int     // bucket size (>= 1)
	ModelRateRPS   float64 // stricter limit for routes that call the model
	ModelRateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 60*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 150*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		DBPath: getenv("DB_PATH", "notes.db"),

		// Notes pipeline
		LLM: LLMConfig{
			BaseURL:      getenv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:       getenv("LLM_API_KEY", ""),
			ChatModel:    getenv("LLM_CHAT_MODEL", "llama-3.3-70b-versatile"),
			StudyModel:   getenv("LLM_STUDY_MODEL", "llama-3.1-8b-instant"),
			Temperature:  getfloat("LLM_TEMPERATURE", 0.2),
			Timeout:      getdur("MODEL_TIMEOUT", 60*time.Second),
			ParseRetries: getint("MODEL_PARSE_RETRIES", 1),
		},
		Upload: UploadConfig{
			MaxFiles:     getint("UPLOAD_MAX_FILES", 20),
			MaxFileBytes: getint64("UPLOAD_MAX_FILE_BYTES", 50<<20),
			TempDir:      getenv("UPLOAD_TEMP_DIR", filepath.Join(os.TempDir(), "askmynotes-uploads")),
		},
		Context: ContextConfig{
			AnswerBudget: getint("CONTEXT_BUDGET_ANSWER", 12000),
			StudyBudget:  getint("CONTEXT_BUDGET_STUDY", 30000),
		},
		HistoryTimeout: getdur("HISTORY_TIMEOUT", 5*time.Second),

		// Optional integrations
		GCS: GCSConfig{
			Bucket:       strings.TrimSpace(getenv("GCS_BUCKET", "")),
			EmulatorHost: strings.TrimSpace(getenv("GCS_EMULATOR_HOST", "")),
		},
		Redis: RedisConfig{
			Addr:       strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:   getenv("REDIS_PASSWORD", ""),
			DB:         getint("REDIS_DB", 0),
			ContextTTL: getdur("REDIS_CONTEXT_TTL", 10*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		ModelRateRPS:   getfloat("MODEL_RATE_RPS", 0.5),
		ModelRateBurst: getint("MODEL_RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "askmynotes-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.LLM.ChatModel) == "" || strings.TrimSpace(cfg.LLM.StudyModel) == "" {
		return cfg, errors.New("LLM_CHAT_MODEL and LLM_STUDY_MODEL must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("MODEL_TIMEOUT must be > 0")
	}
	if cfg.LLM.ParseRetries < 0 {
		return cfg, errors.New("MODEL_PARSE_RETRIES must be >= 0")
	}
	// A study request may call the model once per parse attempt.
	if cfg.WriteTimeout <= cfg.LLM.Timeout*time.Duration(1+cfg.LLM.ParseRetries) {
		return cfg, errors.New("WRITE_TIMEOUT must exceed MODEL_TIMEOUT * (1 + MODEL_PARSE_RETRIES)")
	}
	if cfg.Upload.MaxFiles < 1 {
		return cfg, errors.New("UPLOAD_MAX_FILES must be >= 1")
	}
	if cfg.Upload.MaxFileBytes < 1 {
		return cfg, errors.New("UPLOAD_MAX_FILE_BYTES must be >= 1")
	}
	if strings.TrimSpace(cfg.Upload.TempDir) == "" {
		return cfg, errors.New("UPLOAD_TEMP_DIR must not be empty")
	}
	if cfg.Context.AnswerBudget < 0 || cfg.Context.StudyBudget < 0 {
		return cfg, errors.New("CONTEXT_BUDGET_ANSWER and CONTEXT_BUDGET_STUDY must be >= 0")
	}
	if cfg.HistoryTimeout <= 0 {
		return cfg, errors.New("HISTORY_TIMEOUT must be > 0")
	}
	if cfg.Redis.DB < 0 {
		return cfg, errors.New("REDIS_DB must be >= 0")
	}
	if cfg.Redis.ContextTTL <= 0 {
		return cfg, errors.New("REDIS_CONTEXT_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.ModelRateRPS < 0 {
		return cfg, errors.New("MODEL_RATE_RPS must be >= 0")
	}
	if cfg.ModelRateBurst < 1 {
		return cfg, errors.New("MODEL_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// UploadBodyLimit is the largest multipart body the upload route accepts:
// a full batch plus 1 MiB for form fields and multipart framing.
func (c Config) UploadBodyLimit() int64 {
	return int64(c.Upload.MaxFiles)*c.Upload.MaxFileBytes + 1<<20
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
