// Package config resolves runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/leofalp/agentspace/core/client"
	"github.com/leofalp/agentspace/core/client/middleware"
	"github.com/leofalp/agentspace/providers/ai/backend"
	"github.com/leofalp/agentspace/providers/ai/dialect"
	"github.com/leofalp/agentspace/providers/observability"
	"github.com/leofalp/agentspace/providers/observability/logrusobs"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultAddr    = ":8080"
	DefaultEnvFile = ".env"
)

// Environment variables read by Load.
const (
	EnvBaseURL        = "AGENTSPACE_BASE_URL"
	EnvProvidersFile  = "AGENTSPACE_PROVIDERS_FILE"
	EnvIdleTimeout    = "AGENTSPACE_IDLE_TIMEOUT"
	EnvLogLevel       = "AGENTSPACE_LOG_LEVEL"
	EnvLogFormat      = "AGENTSPACE_LOG_FORMAT"
	EnvAddr           = "AGENTSPACE_ADDR"
	EnvMaxConcurrency = "AGENTSPACE_MAX_CONCURRENCY"
	EnvRequestTimeout = "AGENTSPACE_REQUEST_TIMEOUT"
	EnvMaxRetries     = "AGENTSPACE_MAX_RETRIES"
	EnvCallLog        = "AGENTSPACE_CALL_LOG"
)

// Config holds every setting the CLI and the bridge need.
type Config struct {
	BaseURL string
	// ProvidersFile is an optional YAML provider table replacing the
	// built-in one.
	ProvidersFile string
	// IdleTimeout aborts a stream that stays silent this long. Zero disables it.
	IdleTimeout    time.Duration
	LogLevel       string
	LogFormat      string
	Addr           string
	MaxConcurrency int
	// RequestTimeout bounds a whole provider call, stream included. Zero
	// disables it.
	RequestTimeout time.Duration
	// MaxRetries applies to non-streaming calls only.
	MaxRetries int
	// CallLog is "", "minimal", "standard" or "verbose". Empty disables
	// per-call logging.
	CallLog string
}

// Load reads envFiles (DefaultEnvFile when none is given) into the process
// environment, then builds a Config from it. Missing env files are ignored
// and variables already set win over file values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error loading %s: %w", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:       strings.TrimRight(envOr(EnvBaseURL, DefaultBaseURL), "/"),
		ProvidersFile: strings.TrimSpace(os.Getenv(EnvProvidersFile)),
		LogLevel:      firstNonEmpty(os.Getenv(EnvLogLevel), os.Getenv("LOG_LEVEL")),
		LogFormat:     firstNonEmpty(os.Getenv(EnvLogFormat), os.Getenv("LOG_FORMAT")),
		Addr:          envOr(EnvAddr, DefaultAddr),
	}

	var err error
	if cfg.IdleTimeout, err = durationEnv(EnvIdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationEnv(EnvRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxConcurrency, err = countEnv(EnvMaxConcurrency); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = countEnv(EnvMaxRetries); err != nil {
		return Config{}, err
	}

	cfg.CallLog = strings.ToLower(strings.TrimSpace(os.Getenv(EnvCallLog)))
	if _, err = callLogLevel(cfg.CallLog); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", EnvCallLog, err)
	}

	return cfg, nil
}

// Registry returns the provider table: the ProvidersFile when set, the
// built-in table otherwise.
func (cfg Config) Registry() (*dialect.Registry, error) {
	if cfg.ProvidersFile == "" {
		return dialect.DefaultRegistry(), nil
	}
	return dialect.LoadRegistry(cfg.ProvidersFile)
}

// ObserverOptions maps the logging settings to logrusobs options.
func (cfg Config) ObserverOptions() []logrusobs.Option {
	return []logrusobs.Option{
		logrusobs.WithLevel(logrusobs.ParseLevel(cfg.LogLevel)),
		logrusobs.WithFormat(logrusobs.ParseFormat(cfg.LogFormat)),
	}
}

// NewClient builds a backend client for this configuration.
func (cfg Config) NewClient(observer observability.Provider) (*backend.Client, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return backend.New(
		backend.WithBaseURL(cfg.BaseURL),
		backend.WithRegistry(registry),
		backend.WithObserver(observer),
		backend.WithIdleTimeout(cfg.IdleTimeout),
	), nil
}

// NewProvider wraps backendClient in the middleware chain configured by
// RequestTimeout, MaxRetries and CallLog. Calls pass timeout first, then
// retry, then logging, so every attempt is logged under one deadline.
func (cfg Config) NewProvider(backendClient *backend.Client, logger observability.Logger) (*client.Client, error) {
	var middlewares []client.MiddlewareConfig
	if cfg.RequestTimeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(cfg.RequestTimeout))
	}
	if cfg.MaxRetries > 0 {
		middlewares = append(middlewares, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: cfg.MaxRetries}))
	}

	level, err := callLogLevel(cfg.CallLog)
	if err != nil {
		return nil, err
	}
	if cfg.CallLog != "" && logger != nil {
		middlewares = append(middlewares, middleware.NewLoggingMiddleware(logger, level))
	}

	return client.New(backendClient, client.WithMiddleware(middlewares...))
}

func callLogLevel(value string) (middleware.LogLevel, error) {
	switch value {
	case "", "standard":
		return middleware.LogLevelStandard, nil
	case "minimal":
		return middleware.LogLevelMinimal, nil
	case "verbose":
		return middleware.LogLevelVerbose, nil
	default:
		return 0, fmt.Errorf("unknown call log level %q (want minimal, standard or verbose)", value)
	}
}

func durationEnv(key string) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return value, nil
}

func countEnv(key string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, raw)
	}
	return value, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
