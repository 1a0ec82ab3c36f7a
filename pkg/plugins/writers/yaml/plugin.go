// Package yaml provides a plugin wrapper for the YAML writer.
package yaml

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/plugins/common"
	yamlwriter "github.com/ArionMiles/momoledger/pkg/writer/yaml"
)

// Plugin implements the WriterPlugin interface for YAML files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "yaml"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Append transaction records to a multi-document YAML file"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return common.Schema(map[string]any{
		"filePath": common.StringProp("Path to the YAML output file"),
	}, "filePath")
}

// Config represents the YAML writer configuration.
type Config struct {
	common.Batch
	FilePath string `json:"filePath"`
}

// NewWriter creates a new YAML writer instance.
func (p *Plugin) NewWriter(_ context.Context, _ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := common.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	if cfg.FilePath == "" {
		return nil, errors.New("filePath is required")
	}

	w, err := yamlwriter.New(yamlwriter.Config{
		FilePath:      cfg.FilePath,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.Interval(),
	}, logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}
