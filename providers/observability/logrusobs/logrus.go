package logrusobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leofalp/agentspace/providers/observability"
)

// Observer implements observability.Provider with a logrus logger.
type Observer struct {
	logger  *logrus.Logger
	metrics *metricsStore
}

// Ensure Observer implements observability.Provider
var _ observability.Provider = (*Observer)(nil)

// New creates an Observer. Without options the level and format come from
// AGENTSPACE_LOG_LEVEL / AGENTSPACE_LOG_FORMAT (falling back to LOG_LEVEL /
// LOG_FORMAT) and entries are written to stderr.
//
//	observer := logrusobs.New(
//	    logrusobs.WithFormat(logrusobs.FormatJSON),
//	    logrusobs.WithLevel(logrus.DebugLevel),
//	)
func New(opts ...Option) *Observer {
	cfg := applyOptions(opts...)

	logger := cfg.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(cfg.output)
		logger.SetLevel(cfg.level)
		if cfg.format == FormatJSON {
			logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
	}

	return &Observer{
		logger:  logger,
		metrics: newMetricsStore(),
	}
}

// Logger exposes the underlying logger, e.g. to route a third-party
// component's output through the same formatter.
func (o *Observer) Logger() *logrus.Logger {
	return o.logger
}

// --- TRACING ---

// StartSpan logs the span start at debug level and returns ctx with the span
// attached, so nested helpers can record events on it.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &logrusSpan{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     append([]observability.Attribute(nil), attrs...),
	}
	o.logger.WithFields(fields(attrs)).WithField("span", name).Debug("span started")
	return observability.ContextWithSpan(ctx, span), span
}

type logrusSpan struct {
	name      string
	startTime time.Time
	logger    *logrus.Logger
	mu        sync.Mutex
	attrs     []observability.Attribute
}

func (s *logrusSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.WithFields(fields(s.attrs)).
		WithField("span", s.name).
		WithField(observability.AttrDuration, time.Since(s.startTime).String()).
		Debug("span ended")
}

func (s *logrusSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *logrusSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (s *logrusSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.logger.WithError(err).WithField("span", s.name).Error("span error")
}

func (s *logrusSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.WithFields(fields(attrs)).WithField("span", s.name).WithField("event", name).Debug("span event")
}

// --- METRICS ---

// Counter returns the named counter, creating it on first use.
func (o *Observer) Counter(name string) observability.Counter {
	return o.metrics.counter(name, o.logger)
}

// Histogram returns the named histogram, creating it on first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	return o.metrics.histogram(name, o.logger)
}

// CounterValue returns the running total of a counter, 0 if never used.
func (o *Observer) CounterValue(name string) int64 {
	o.metrics.mu.RLock()
	counter, ok := o.metrics.counters[name]
	o.metrics.mu.RUnlock()
	if !ok {
		return 0
	}
	counter.mu.Lock()
	defer counter.mu.Unlock()
	return counter.value
}

type metricsStore struct {
	mu         sync.RWMutex
	counters   map[string]*logrusCounter
	histograms map[string]*logrusHistogram
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		counters:   make(map[string]*logrusCounter),
		histograms: make(map[string]*logrusHistogram),
	}
}

func (m *metricsStore) counter(name string, logger *logrus.Logger) *logrusCounter {
	m.mu.Lock()
	defer m.mu.Unlock()
	counter, ok := m.counters[name]
	if !ok {
		counter = &logrusCounter{name: name, logger: logger}
		m.counters[name] = counter
	}
	return counter
}

func (m *metricsStore) histogram(name string, logger *logrus.Logger) *logrusHistogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	histogram, ok := m.histograms[name]
	if !ok {
		histogram = &logrusHistogram{name: name, logger: logger}
		m.histograms[name] = histogram
	}
	return histogram
}

type logrusCounter struct {
	name   string
	logger *logrus.Logger
	mu     sync.Mutex
	value  int64
}

func (c *logrusCounter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	c.mu.Lock()
	c.value += value
	current := c.value
	c.mu.Unlock()

	c.logger.WithFields(fields(attrs)).WithFields(logrus.Fields{
		"metric": c.name,
		"type":   "counter",
		"value":  current,
		"delta":  value,
	}).Debug("counter")
}

type logrusHistogram struct {
	name   string
	logger *logrus.Logger
}

func (h *logrusHistogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	h.logger.WithFields(fields(attrs)).WithFields(logrus.Fields{
		"metric": h.name,
		"type":   "histogram",
		"value":  value,
	}).Debug("histogram")
}

// --- LOGGING ---

// Trace logs at logrus TraceLevel.
func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, logrus.TraceLevel, msg, attrs...)
}

// Debug logs at logrus DebugLevel.
func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, logrus.DebugLevel, msg, attrs...)
}

// Info logs at logrus InfoLevel.
func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, logrus.InfoLevel, msg, attrs...)
}

// Warn logs at logrus WarnLevel.
func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, logrus.WarnLevel, msg, attrs...)
}

// Error logs at logrus ErrorLevel.
func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, logrus.ErrorLevel, msg, attrs...)
}

func (o *Observer) log(ctx context.Context, level logrus.Level, msg string, attrs ...observability.Attribute) {
	entry := o.logger.WithFields(fields(attrs))
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	entry.Log(level, msg)
}

func fields(attrs []observability.Attribute) logrus.Fields {
	out := make(logrus.Fields, len(attrs))
	for _, attr := range attrs {
		out[attr.Key] = attr.Value
	}
	return out
}
