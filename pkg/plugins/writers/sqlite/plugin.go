// Package sqlite provides a plugin wrapper for the SQLite store.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/plugins/common"
	"github.com/ArionMiles/momoledger/pkg/writer/sqlite"
)

// Plugin implements the WriterPlugin interface for SQLite.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "sqlite"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store transaction records in SQLite, ignoring duplicate message ids"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return common.Schema(map[string]any{
		"path": common.StringProp("Path to the database file"),
	}, "path")
}

// Config represents the SQLite store configuration.
type Config struct {
	common.Batch
	Path string `json:"path"`
}

// NewWriter opens the SQLite store.
func (p *Plugin) NewWriter(_ context.Context, _ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	s, err := p.open(configData, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore opens the SQLite store for querying.
func (p *Plugin) NewStore(_ context.Context, configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	s, err := p.open(configData, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Plugin) open(configData json.RawMessage, logger *slog.Logger) (*sqlite.Store, error) {
	var cfg Config
	if err := common.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}

	return sqlite.New(sqlite.Config{
		Path:          cfg.Path,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.Interval(),
	}, logger)
}
