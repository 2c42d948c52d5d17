// Package logrusobs implements observability.Provider on top of
// github.com/sirupsen/logrus. Spans and metric updates are emitted as debug
// entries; counters are also kept in memory so a CLI can print a summary.
package logrusobs
