package logrusobs

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format selects the logrus formatter.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Option is a functional option for configuring the Observer.
type Option func(*config)

type config struct {
	format Format
	level  logrus.Level
	output io.Writer
	logger *logrus.Logger
}

// WithFormat sets the log output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level logrus.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the output writer for logs.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithLogger uses an existing logger as is; format, level and output
// options are ignored.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func applyOptions(opts ...Option) *config {
	cfg := &config{
		format: ParseFormat(envFirst("AGENTSPACE_LOG_FORMAT", "LOG_FORMAT")),
		level:  ParseLevel(envFirst("AGENTSPACE_LOG_LEVEL", "LOG_LEVEL")),
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ParseLevel maps a case-insensitive level name to a logrus level.
// Empty or unknown values yield InfoLevel; unknown values also print a
// warning to stderr.
func ParseLevel(level string) logrus.Level {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		return logrus.InfoLevel
	}
	parsed, err := logrus.ParseLevel(trimmed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Unknown log level '%s', using INFO\n", level)
		return logrus.InfoLevel
	}
	return parsed
}

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(format string) Format {
	if strings.EqualFold(strings.TrimSpace(format), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
