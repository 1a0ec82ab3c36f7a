// Package smsxml provides a plugin wrapper for the SMS backup reader.
package smsxml

import (
	"encoding/json"
	"log/slog"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/parser"
	"github.com/ArionMiles/momoledger/pkg/plugins/common"
	"github.com/ArionMiles/momoledger/pkg/reader/smsxml"
)

// Plugin implements the ReaderPlugin interface for SMS backup files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "smsxml"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read mobile-money notifications from an SMS backup XML file"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": common.StringProp("Path to the <smses> backup file"),
		},
		"required": []string{"path"},
	}
}

// NewReader creates a new SMS backup reader instance.
func (p *Plugin) NewReader(configData json.RawMessage, proc *parser.Processor, logger *slog.Logger) (api.Reader, error) {
	var cfg smsxml.Config
	if err := common.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	r, err := smsxml.New(cfg, proc, logger)
	if err != nil {
		return nil, err
	}
	return r, nil
}
