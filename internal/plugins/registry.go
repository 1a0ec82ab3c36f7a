// Package plugins provides a plugin registry for readers and writers.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/parser"
)

// Plugin is the metadata every plugin exposes.
type Plugin interface {
	// Name returns the plugin name (e.g., "smsxml", "sqlite").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
}

// ReaderPlugin creates readers that feed raw messages through a processor.
type ReaderPlugin interface {
	Plugin
	NewReader(config json.RawMessage, proc *parser.Processor, logger *slog.Logger) (api.Reader, error)
}

// WriterPlugin creates record writers.
type WriterPlugin interface {
	Plugin
	NewWriter(ctx context.Context, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error)
}

// StorePlugin is a WriterPlugin whose destination can be queried.
type StorePlugin interface {
	WriterPlugin
	NewStore(ctx context.Context, config json.RawMessage, logger *slog.Logger) (api.Store, error)
}

// Registry manages available reader and writer plugins.
type Registry struct {
	readers map[string]ReaderPlugin
	writers map[string]WriterPlugin
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]ReaderPlugin),
		writers: make(map[string]WriterPlugin),
	}
}

// RegisterReader registers a reader plugin.
func (r *Registry) RegisterReader(plugin ReaderPlugin) error {
	name := plugin.Name()
	if _, exists := r.readers[name]; exists {
		return fmt.Errorf("reader plugin %q already registered", name)
	}
	r.readers[name] = plugin
	return nil
}

// RegisterWriter registers a writer plugin.
func (r *Registry) RegisterWriter(plugin WriterPlugin) error {
	name := plugin.Name()
	if _, exists := r.writers[name]; exists {
		return fmt.Errorf("writer plugin %q already registered", name)
	}
	r.writers[name] = plugin
	return nil
}

// GetReader returns a reader plugin by name.
func (r *Registry) GetReader(name string) (ReaderPlugin, error) {
	plugin, exists := r.readers[name]
	if !exists {
		return nil, fmt.Errorf("reader plugin %q not found", name)
	}
	return plugin, nil
}

// GetWriter returns a writer plugin by name.
func (r *Registry) GetWriter(name string) (WriterPlugin, error) {
	plugin, exists := r.writers[name]
	if !exists {
		return nil, fmt.Errorf("writer plugin %q not found", name)
	}
	return plugin, nil
}

// GetStore returns a queryable writer plugin by name.
func (r *Registry) GetStore(name string) (StorePlugin, error) {
	plugin, err := r.GetWriter(name)
	if err != nil {
		return nil, err
	}
	store, ok := plugin.(StorePlugin)
	if !ok {
		return nil, fmt.Errorf("writer plugin %q cannot be queried", name)
	}
	return store, nil
}

// ListReaders returns all registered reader plugins sorted by name.
func (r *Registry) ListReaders() []ReaderPlugin {
	return sortedValues(r.readers)
}

// ListWriters returns all registered writer plugins sorted by name.
func (r *Registry) ListWriters() []WriterPlugin {
	return sortedValues(r.writers)
}

func sortedValues[P Plugin](m map[string]P) []P {
	plugins := make([]P, 0, len(m))
	for _, p := range m {
		plugins = append(plugins, p)
	}
	slices.SortFunc(plugins, func(a, b P) int { return strings.Compare(a.Name(), b.Name()) })
	return plugins
}

// GetAllScopes returns the sorted, deduplicated OAuth scopes required by the
// given reader and writer.
func (r *Registry) GetAllScopes(readerName, writerName string) ([]string, error) {
	reader, err := r.GetReader(readerName)
	if err != nil {
		return nil, err
	}
	writer, err := r.GetWriter(writerName)
	if err != nil {
		return nil, err
	}

	scopes := append(slices.Clone(reader.RequiredScopes()), writer.RequiredScopes()...)
	slices.Sort(scopes)
	return slices.Compact(scopes), nil
}

// CreateReader creates a reader instance from a plugin.
func (r *Registry) CreateReader(name string, config json.RawMessage, proc *parser.Processor, logger *slog.Logger) (api.Reader, error) {
	plugin, err := r.GetReader(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewReader(config, proc, logger)
}

// CreateWriter creates a writer instance from a plugin.
func (r *Registry) CreateWriter(ctx context.Context, name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	plugin, err := r.GetWriter(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewWriter(ctx, httpClient, config, logger)
}

// CreateStore opens a queryable store from a plugin.
func (r *Registry) CreateStore(ctx context.Context, name string, config json.RawMessage, logger *slog.Logger) (api.Store, error) {
	plugin, err := r.GetStore(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewStore(ctx, config, logger)
}
