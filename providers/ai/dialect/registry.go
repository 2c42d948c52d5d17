package dialect

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProvider is returned when a provider name is not in the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// Descriptor is the per-provider row of the dialect table.
type Descriptor struct {
	// Name is the display name users select, e.g. "Sonar".
	Name string `yaml:"name" json:"name"`
	// StreamPath is the SSE endpoint, relative to the backend base URL.
	// Providers without one are chat-only.
	StreamPath string `yaml:"stream_path" json:"stream_path"`
	// ChatPath is the non-streaming endpoint.
	ChatPath string `yaml:"chat_path" json:"chat_path"`
	// CumulativeGuard enables suffix extraction for untyped answer frames
	// that repeat the text already received.
	CumulativeGuard bool `yaml:"cumulative_guard" json:"cumulative_guard"`
}

// DefaultDescriptors is the built-in table, in display order.
var DefaultDescriptors = []Descriptor{
	{Name: "Sonar", StreamPath: "/stream/perplexity", ChatPath: "/chat/perplexity", CumulativeGuard: true},
	{Name: "Gemini", StreamPath: "/stream/gemini", ChatPath: "/chat/gemini", CumulativeGuard: true},
	{Name: "R1", StreamPath: "/stream/deepseek", ChatPath: "/chat/deepseek", CumulativeGuard: true},
	{Name: "Qwen", StreamPath: "/stream/qwen", ChatPath: "/chat/qwen", CumulativeGuard: true},
}

// Registry is an immutable, ordered set of descriptors keyed by name.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
}

// NewRegistry builds a registry, rejecting empty or duplicate names and
// descriptors with neither a stream nor a chat path.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("registry needs at least one provider")
	}

	registry := &Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		byName:      make(map[string]int, len(descriptors)),
	}
	for i, descriptor := range descriptors {
		descriptor.Name = strings.TrimSpace(descriptor.Name)
		if descriptor.Name == "" {
			return nil, fmt.Errorf("provider #%d: empty name", i)
		}
		if _, exists := registry.byName[descriptor.Name]; exists {
			return nil, fmt.Errorf("provider %q declared twice", descriptor.Name)
		}
		if descriptor.StreamPath == "" && descriptor.ChatPath == "" {
			return nil, fmt.Errorf("provider %q: needs a stream_path or a chat_path", descriptor.Name)
		}
		registry.byName[descriptor.Name] = len(registry.descriptors)
		registry.descriptors = append(registry.descriptors, descriptor)
	}
	return registry, nil
}

// DefaultRegistry returns a registry over DefaultDescriptors.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(DefaultDescriptors...)
	if err != nil {
		panic(err) // static table
	}
	return registry
}

// Lookup returns the descriptor registered under name.
func (registry *Registry) Lookup(name string) (Descriptor, error) {
	index, ok := registry.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return registry.descriptors[index], nil
}

// Has reports whether name is registered.
func (registry *Registry) Has(name string) bool {
	_, ok := registry.byName[name]
	return ok
}

// Names returns the provider names in declaration order.
func (registry *Registry) Names() []string {
	names := make([]string, len(registry.descriptors))
	for i, descriptor := range registry.descriptors {
		names[i] = descriptor.Name
	}
	return names
}

// Descriptors returns a copy of the table in declaration order.
func (registry *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), registry.descriptors...)
}

// fileEntry mirrors Descriptor with an optional guard so a table file can
// omit it and get the default (enabled).
type fileEntry struct {
	Name            string `yaml:"name"`
	StreamPath      string `yaml:"stream_path"`
	ChatPath        string `yaml:"chat_path"`
	CumulativeGuard *bool  `yaml:"cumulative_guard"`
}

type fileTable struct {
	Providers []fileEntry `yaml:"providers"`
}

// ParseRegistry reads a YAML table of the form
//
//	providers:
//	  - name: Sonar
//	    stream_path: /stream/perplexity
//	    chat_path: /chat/perplexity
//	    cumulative_guard: true
func ParseRegistry(data []byte) (*Registry, error) {
	var table fileTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("error parsing provider table: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(table.Providers))
	for _, entry := range table.Providers {
		guard := true
		if entry.CumulativeGuard != nil {
			guard = *entry.CumulativeGuard
		}
		descriptors = append(descriptors, Descriptor{
			Name:            entry.Name,
			StreamPath:      entry.StreamPath,
			ChatPath:        entry.ChatPath,
			CumulativeGuard: guard,
		})
	}
	return NewRegistry(descriptors...)
}

// LoadRegistry reads a YAML table file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading provider table: %w", err)
	}
	registry, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return registry, nil
}
