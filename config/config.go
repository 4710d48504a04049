package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names understood by PROVIDER_PRIORITY
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

// KnownProviders lists every provider the service can build, in default priority order
var KnownProviders = []string{ProviderGemini, ProviderOpenAI, ProviderGroq}

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      *DatabaseConfig // nil when no database is configured
	Providers     ProvidersConfig
	Completion    CompletionConfig
	Retry         RetryConfig
	Persona       PersonaConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ProvidersConfig holds upstream provider credentials and their priority
type ProvidersConfig struct {
	Priority []string
	Gemini   ProviderConfig
	OpenAI   ProviderConfig
	Groq     ProviderConfig
}

// ProviderConfig holds one provider's settings
type ProviderConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerMinute int // 0 disables client-side throttling
}

// Configured reports whether credentials are present
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// CompletionConfig holds generation settings shared by every provider
type CompletionConfig struct {
	MaxTokens   int
	Temperature float64
}

// RetryConfig holds the per-provider retry budget
type RetryConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	RequestTimeout    time.Duration
	MaxRequestLatency time.Duration // 0 means the worst case implied by the other settings
}

// PersonaConfig holds the answering persona. File wins over Text.
type PersonaConfig struct {
	Text string
	File string
}

// AuditConfig holds outcome audit worker settings
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env otherwise)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := Load()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Load reads the configuration from the environment without validating it
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getPort(),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: loadDatabaseConfig(),
		Providers: ProvidersConfig{
			Priority: getEnvAsList("PROVIDER_PRIORITY", KnownProviders),
			Gemini:   loadProviderConfig("GEMINI", "gemini-2.5-flash"),
			OpenAI:   loadProviderConfig("OPENAI", "gpt-4o-mini"),
			Groq:     loadProviderConfig("GROQ", "llama-3.3-70b-versatile"),
		},
		Completion: CompletionConfig{
			MaxTokens:   getEnvAsInt("MAX_TOKENS", 200),
			Temperature: getEnvAsFloat("TEMPERATURE", 0.7),
		},
		Retry: RetryConfig{
			MaxAttempts:       getEnvAsInt("MAX_ATTEMPTS", 3),
			BaseDelay:         getEnvAsDuration("RETRY_BASE_DELAY", time.Second),
			RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			MaxRequestLatency: getEnvAsDuration("MAX_REQUEST_LATENCY", 0),
		},
		Persona: PersonaConfig{
			Text: getEnv("PERSONA", DefaultPersona),
			File: getEnv("PERSONA_FILE", ""),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKERS", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database != nil && c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	seen := make(map[string]bool, len(c.Providers.Priority))
	for _, name := range c.Providers.Priority {
		if !isKnownProvider(name) {
			return fmt.Errorf("unknown provider in PROVIDER_PRIORITY: %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate provider in PROVIDER_PRIORITY: %q", name)
		}
		seen[name] = true
	}

	// Provider validation (at least one provider API key required in production)
	if c.IsProduction() && len(c.Providers.ConfiguredNames()) == 0 {
		return fmt.Errorf("at least one LLM provider must be configured in production")
	}

	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry base delay cannot be negative")
	}
	if c.Retry.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Retry.MaxRequestLatency < 0 {
		return fmt.Errorf("max request latency cannot be negative")
	}

	if c.Audit.BufferSize <= 0 || c.Audit.WorkerCount <= 0 {
		return fmt.Errorf("audit buffer size and worker count must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Get returns the settings for a named provider
func (p ProvidersConfig) Get(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderGemini:
		return p.Gemini, true
	case ProviderOpenAI:
		return p.OpenAI, true
	case ProviderGroq:
		return p.Groq, true
	default:
		return ProviderConfig{}, false
	}
}

// ConfiguredNames returns the prioritized providers that have credentials
func (p ProvidersConfig) ConfiguredNames() []string {
	var names []string
	for _, name := range p.Priority {
		if pc, ok := p.Get(name); ok && pc.Configured() {
			names = append(names, name)
		}
	}
	return names
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDatabaseConfig reads DATABASE_URL or DB_* vars. The outcome store is
// optional, so nil is returned when neither DATABASE_URL nor DB_HOST is set.
func loadDatabaseConfig() *DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return &pool
	}
	if os.Getenv("DB_HOST") == "" {
		return nil
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "voiceme")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "voiceme")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return &pool
}

func loadProviderConfig(prefix, defaultModel string) ProviderConfig {
	return ProviderConfig{
		APIKey:            getEnv(prefix+"_API_KEY", ""),
		Model:             getEnv(prefix+"_MODEL", defaultModel),
		BaseURL:           getEnv(prefix+"_BASE_URL", ""),
		RequestsPerMinute: getEnvAsInt(prefix+"_REQUESTS_PER_MINUTE", 0),
	}
}

func isKnownProvider(name string) bool {
	for _, known := range KnownProviders {
		if name == known {
			return true
		}
	}
	return false
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8001)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8001
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
