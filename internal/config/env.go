// Package config handles environment-based configuration loading and runtime config models.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// EnvConfig holds all environment-variable-driven settings (not hot-updatable).
type EnvConfig struct {
	// Directories
	CookieDir string
	StateDir  string
	LogDir    string

	// Network
	ListenAddress   string
	Port            int
	APIMaxBodyBytes int

	// Extraction
	AttemptTimeout    time.Duration
	FetchTimeout      time.Duration
	MaxConcurrency    int
	CookieRegenCron   string
	CookieRegenCmd    string
	CookieSweepMin    time.Duration
	CookieSweepJitter time.Duration

	// Proxy pool
	ProxyPoolFile string

	// Result cache
	CacheCapacity int

	// Request log
	RequestLogQueueSize           int
	RequestLogQueueFlushBatchSize int
	RequestLogQueueFlushInterval  time.Duration
	RequestLogDBMaxMB             int
	RequestLogDBRetainCount       int

	// Auth
	AdminToken string
}

// LoadEnvConfig reads environment variables and returns a validated EnvConfig.
// Returns an error if any required variable is missing or any value is invalid.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	// --- Directories ---
	cfg.CookieDir = envStr("SNAPGRAB_COOKIE_DIR", "/var/lib/snapgrab/cookies")
	cfg.StateDir = envStr("SNAPGRAB_STATE_DIR", "/var/lib/snapgrab")
	cfg.LogDir = envStr("SNAPGRAB_LOG_DIR", "/var/log/snapgrab")

	// --- Network ---
	cfg.ListenAddress = strings.TrimSpace(envStr("SNAPGRAB_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("SNAPGRAB_PORT", 8750, &errs)
	cfg.APIMaxBodyBytes = envInt("SNAPGRAB_API_MAX_BODY_BYTES", 1<<20, &errs)

	// --- Extraction ---
	cfg.AttemptTimeout = envDuration("SNAPGRAB_ATTEMPT_TIMEOUT", 30*time.Second, &errs)
	cfg.FetchTimeout = envDuration("SNAPGRAB_FETCH_TIMEOUT", 20*time.Second, &errs)
	cfg.MaxConcurrency = envInt("SNAPGRAB_MAX_CONCURRENCY", 64, &errs)
	cfg.CookieRegenCron = envStr("SNAPGRAB_COOKIE_REGEN_SCHEDULE", "0 6 * * *")
	cfg.CookieRegenCmd = envStr("SNAPGRAB_COOKIE_REGEN_COMMAND", "")
	cfg.CookieSweepMin = envDuration("SNAPGRAB_COOKIE_SWEEP_MIN_INTERVAL", 13*time.Second, &errs)
	cfg.CookieSweepJitter = envDuration("SNAPGRAB_COOKIE_SWEEP_JITTER", 4*time.Second, &errs)

	// --- Proxy pool (empty means no pool file; pool starts empty) ---
	cfg.ProxyPoolFile = envStr("SNAPGRAB_PROXY_POOL_FILE", "")

	// --- Result cache ---
	cfg.CacheCapacity = envInt("SNAPGRAB_CACHE_CAPACITY", 4096, &errs)

	// --- Request log ---
	cfg.RequestLogQueueSize = envInt("SNAPGRAB_REQUEST_LOG_QUEUE_SIZE", 8192, &errs)
	cfg.RequestLogQueueFlushBatchSize = envInt("SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_BATCH_SIZE", 2048, &errs)
	cfg.RequestLogQueueFlushInterval = envDuration("SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_INTERVAL", time.Minute, &errs)
	cfg.RequestLogDBMaxMB = envInt("SNAPGRAB_REQUEST_LOG_DB_MAX_MB", 256, &errs)
	cfg.RequestLogDBRetainCount = envInt("SNAPGRAB_REQUEST_LOG_DB_RETAIN_COUNT", 5, &errs)

	// --- Auth (must be defined; empty means auth disabled) ---
	adminToken, hasAdminToken := os.LookupEnv("SNAPGRAB_ADMIN_TOKEN")
	cfg.AdminToken = adminToken

	// --- Validation ---
	if !hasAdminToken {
		errs = append(errs, "SNAPGRAB_ADMIN_TOKEN must be defined (can be empty)")
	}
	if cfg.ListenAddress == "" {
		errs = append(errs, "SNAPGRAB_LISTEN_ADDRESS must not be empty")
	}

	validatePort("SNAPGRAB_PORT", cfg.Port, &errs)
	validatePositive("SNAPGRAB_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)

	if cfg.AttemptTimeout <= 0 {
		errs = append(errs, "SNAPGRAB_ATTEMPT_TIMEOUT must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		errs = append(errs, "SNAPGRAB_FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchTimeout > cfg.AttemptTimeout {
		errs = append(errs, "SNAPGRAB_FETCH_TIMEOUT must be less than or equal to SNAPGRAB_ATTEMPT_TIMEOUT")
	}
	validatePositive("SNAPGRAB_MAX_CONCURRENCY", cfg.MaxConcurrency, &errs)
	if _, err := cron.ParseStandard(cfg.CookieRegenCron); err != nil {
		errs = append(errs, fmt.Sprintf("SNAPGRAB_COOKIE_REGEN_SCHEDULE: invalid cron expression %q: %v", cfg.CookieRegenCron, err))
	}
	if cfg.CookieSweepMin <= 0 {
		errs = append(errs, "SNAPGRAB_COOKIE_SWEEP_MIN_INTERVAL must be positive")
	}
	if cfg.CookieSweepJitter < 0 {
		errs = append(errs, "SNAPGRAB_COOKIE_SWEEP_JITTER must not be negative")
	}

	validatePositive("SNAPGRAB_CACHE_CAPACITY", cfg.CacheCapacity, &errs)

	validatePositive("SNAPGRAB_REQUEST_LOG_QUEUE_SIZE", cfg.RequestLogQueueSize, &errs)
	validatePositive("SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_BATCH_SIZE", cfg.RequestLogQueueFlushBatchSize, &errs)
	validatePositive("SNAPGRAB_REQUEST_LOG_DB_MAX_MB", cfg.RequestLogDBMaxMB, &errs)
	validatePositive("SNAPGRAB_REQUEST_LOG_DB_RETAIN_COUNT", cfg.RequestLogDBRetainCount, &errs)
	if cfg.RequestLogQueueFlushInterval <= 0 {
		errs = append(errs, "SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_INTERVAL must be positive")
	}

	// Queue size must be >= 2x batch size
	if cfg.RequestLogQueueSize < 2*cfg.RequestLogQueueFlushBatchSize {
		errs = append(errs, "SNAPGRAB_REQUEST_LOG_QUEUE_SIZE must be at least 2x SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_BATCH_SIZE")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
