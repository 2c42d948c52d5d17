package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/agentspace/providers/ai"
	"github.com/leofalp/agentspace/providers/observability/logrusobs"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test. t.Setenv registers the restore; Unsetenv makes the
// variables absent so env files can still set them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvBaseURL, EnvProvidersFile, EnvIdleTimeout, EnvLogLevel, EnvLogFormat,
		EnvAddr, EnvMaxConcurrency, EnvRequestTimeout, EnvMaxRetries, EnvCallLog,
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Zero(t, cfg.MaxConcurrency)
	assert.Empty(t, cfg.ProvidersFile)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Zero(t, cfg.MaxRetries)
	assert.Empty(t, cfg.CallLog)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBaseURL, "http://backend:9000/")
	t.Setenv(EnvIdleTimeout, "45s")
	t.Setenv(EnvAddr, "127.0.0.1:7000")
	t.Setenv(EnvMaxConcurrency, "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvRequestTimeout, "2m")
	t.Setenv(EnvMaxRetries, "3")
	t.Setenv(EnvCallLog, " Verbose ")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "verbose", cfg.CallLog)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"idle timeout not a duration", EnvIdleTimeout, "soon"},
		{"negative idle timeout", EnvIdleTimeout, "-1s"},
		{"max concurrency not a number", EnvMaxConcurrency, "many"},
		{"negative max concurrency", EnvMaxConcurrency, "-3"},
		{"request timeout not a duration", EnvRequestTimeout, "1 minute"},
		{"max retries not a number", EnvMaxRetries, "lots"},
		{"unknown call log level", EnvCallLog, "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AGENTSPACE_ADDR=:9999\nAGENTSPACE_IDLE_TIMEOUT=2m\n"), 0o644))
	t.Setenv(EnvBaseURL, "http://from-env")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "http://from-env", cfg.BaseURL)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestRegistry(t *testing.T) {
	cfg := Config{}
	registry, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"Sonar", "Gemini", "R1", "Qwen"}, registry.Names())

	file := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`providers:
  - name: Local
    stream_path: /stream/local
`), 0o644))

	cfg.ProvidersFile = file
	registry, err = cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"Local"}, registry.Names())

	cfg.ProvidersFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Registry()
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	cfg := Config{BaseURL: "http://backend:1234"}

	client, err := cfg.NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:1234", client.BaseURL())
	assert.Equal(t, []string{"Sonar", "Gemini", "R1", "Qwen"}, client.Providers())
}

func TestNewProvider(t *testing.T) {
	cfg := Config{BaseURL: "http://127.0.0.1:1", MaxRetries: 1, RequestTimeout: time.Minute, CallLog: "minimal"}
	backendClient, err := cfg.NewClient(nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	provider, err := cfg.NewProvider(backendClient, logrusobs.New(logrusobs.WithOutput(&logs)))
	require.NoError(t, err)
	assert.Equal(t, backendClient.Providers(), provider.Providers())
	assert.Same(t, backendClient.Registry(), provider.Registry())

	_, err = provider.SendMessage(context.Background(), "Sonar", ai.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "provider send failed")
}

func TestNewProvider_NoCallLog(t *testing.T) {
	cfg := Config{BaseURL: "http://127.0.0.1:1"}
	backendClient, err := cfg.NewClient(nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	provider, err := cfg.NewProvider(backendClient, logrusobs.New(logrusobs.WithOutput(&logs)))
	require.NoError(t, err)

	_, err = provider.SendMessage(context.Background(), "Sonar", ai.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.NotContains(t, logs.String(), "provider send")

	_, err = Config{CallLog: "loud"}.NewProvider(backendClient, nil)
	assert.Error(t, err)
}

func TestObserverOptions(t *testing.T) {
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	observer := logrusobs.New(cfg.ObserverOptions()...)

	assert.Equal(t, logrus.WarnLevel, observer.Logger().GetLevel())
	_, isJSON := observer.Logger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
