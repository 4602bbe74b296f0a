package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Core engine
	Orchestrator OrchestratorConfig
	Alert        AlertConfig
	Store        StoreConfig
	Confluence   ConfluenceConfig
	MarketData   MarketDataConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OrchestratorConfig holds the polling loop configuration
type OrchestratorConfig struct {
	TickInterval    time.Duration // how often the due-set is scanned
	WorkerPoolSize  int           // max checkers running concurrently (0 = one per checker)
	WorkerPoolCap   int           // hard cap on the worker pool
	CheckerTimeout  time.Duration // per-Check() call deadline
	FailureLimit    int           // consecutive failures before a checker is cooled down
	FailureCooldown time.Duration // initial cooldown after FailureLimit failures
	FailureCapped   time.Duration // ceiling for the exponential cooldown
	ContextCacheTTL time.Duration // market context cache lifetime (one tick)
}

// AlertConfig holds alert dispatch configuration
type AlertConfig struct {
	DefaultCooldown time.Duration // min gap between identical (source, symbol, kind) alerts
	HourlyBudget    int           // alerts per source per rolling hour
	WebhookURL      string        // empty disables the webhook sink
	WebhookTimeout  time.Duration
	DispatchWorkers int // async sink delivery pool

	// Per-source overrides, read from ALERT_COOLDOWN_<SOURCE> and
	// ALERT_BUDGET_<SOURCE> (e.g. ALERT_COOLDOWN_REDDIT=4h,
	// ALERT_BUDGET_DARKPOOL=10). Source names are matched lowercase.
	SourceCooldowns map[string]time.Duration
	SourceBudgets   map[string]int
}

// StoreConfig holds signal store configuration
type StoreConfig struct {
	RetentionDays  int           // rows older than this are archived
	RefreshTimeout time.Duration // per price lookup during outcome refresh
	PriceRateLimit int           // price lookups per second during refresh
}

// ConfluenceConfig holds scorer configuration
type ConfluenceConfig struct {
	ConfigPath string // YAML factor weights; empty uses built-in defaults
}

// MarketDataConfig holds the context/price provider endpoint.
// Empty BaseURL runs the engine without market context (signals score 0).
type MarketDataConfig struct {
	BaseURL      string
	Timeout      time.Duration
	BudgetPerMin int // shared per-minute request budget; 0 disables
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "lotto_machine"),
			User:            getEnv("DB_USER", "lotto_machine"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Orchestrator: OrchestratorConfig{
			TickInterval:    getEnvAsDuration("ORCH_TICK_INTERVAL", "30s"),
			WorkerPoolSize:  getEnvAsInt("ORCH_WORKER_POOL", 0),
			WorkerPoolCap:   getEnvAsInt("ORCH_WORKER_POOL_CAP", 16),
			CheckerTimeout:  getEnvAsDuration("ORCH_CHECKER_TIMEOUT", "10s"),
			FailureLimit:    getEnvAsInt("ORCH_FAILURE_LIMIT", 5),
			FailureCooldown: getEnvAsDuration("ORCH_FAILURE_COOLDOWN", "5m"),
			FailureCapped:   getEnvAsDuration("ORCH_FAILURE_COOLDOWN_MAX", "1h"),
			ContextCacheTTL: getEnvAsDuration("ORCH_CONTEXT_CACHE_TTL", "30s"),
		},

		Alert: AlertConfig{
			DefaultCooldown: getEnvAsDuration("ALERT_DEFAULT_COOLDOWN", "4h"),
			HourlyBudget:    getEnvAsInt("ALERT_HOURLY_BUDGET", 5),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			WebhookTimeout:  getEnvAsDuration("ALERT_WEBHOOK_TIMEOUT", "10s"),
			DispatchWorkers: getEnvAsInt("ALERT_DISPATCH_WORKERS", 4),
			SourceCooldowns: getEnvDurationsByPrefix("ALERT_COOLDOWN_"),
			SourceBudgets:   getEnvIntsByPrefix("ALERT_BUDGET_"),
		},

		Store: StoreConfig{
			RetentionDays:  getEnvAsInt("STORE_RETENTION_DAYS", 180),
			RefreshTimeout: getEnvAsDuration("STORE_REFRESH_TIMEOUT", "10s"),
			PriceRateLimit: getEnvAsInt("STORE_PRICE_RATE_LIMIT", 5),
		},

		Confluence: ConfluenceConfig{
			ConfigPath: getEnv("CONFLUENCE_CONFIG", ""),
		},

		MarketData: MarketDataConfig{
			BaseURL:      getEnv("MARKET_DATA_URL", ""),
			Timeout:      getEnvAsDuration("MARKET_DATA_TIMEOUT", "10s"),
			BudgetPerMin: getEnvAsInt("MARKET_DATA_BUDGET_PER_MIN", 300),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Orchestrator.TickInterval <= 0 {
		return fmt.Errorf("ORCH_TICK_INTERVAL must be positive")
	}

	if c.Alert.HourlyBudget < 1 {
		return fmt.Errorf("ALERT_HOURLY_BUDGET must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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

// getEnvDurationsByPrefix collects every PREFIX_<NAME>=<duration> pair
// into a map keyed by the lowercased name. Unparseable values are skipped.
func getEnvDurationsByPrefix(prefix string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, prefix) || value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			continue
		}
		out[strings.ToLower(strings.TrimPrefix(key, prefix))] = d
	}
	return out
}

// getEnvIntsByPrefix collects every PREFIX_<NAME>=<int> pair into a map
// keyed by the lowercased name. Unparseable values are skipped.
func getEnvIntsByPrefix(prefix string) map[string]int {
	out := make(map[string]int)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, prefix) || value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		out[strings.ToLower(strings.TrimPrefix(key, prefix))] = n
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
