// Package sheets provides a plugin wrapper for the Google Sheets writer.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/plugins/common"
	"github.com/ArionMiles/momoledger/pkg/writer/sheets"
)

// Plugin implements the WriterPlugin interface for Google Sheets.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "sheets"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Append transaction records to a Google Sheet"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return []string{sheets.Scope}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return common.Schema(map[string]any{
		"sheetTitle": common.StringProp("Title for a new spreadsheet (used if sheetId is not provided)"),
		"sheetId":    common.StringProp("ID of an existing spreadsheet to use"),
		"sheetName":  common.StringProp("Name of the sheet/tab within the spreadsheet"),
	})
}

// Config represents the Sheets writer configuration.
type Config struct {
	common.Batch
	SheetTitle string `json:"sheetTitle"`
	SheetID    string `json:"sheetId"`
	SheetName  string `json:"sheetName"`
}

// NewWriter creates a new Sheets writer instance. httpClient must carry
// OAuth credentials for RequiredScopes.
func (p *Plugin) NewWriter(ctx context.Context, httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	if httpClient == nil {
		return nil, errors.New("sheets writer needs an authorized http client; run setup first")
	}

	var cfg Config
	if err := common.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	if cfg.SheetID == "" && cfg.SheetTitle == "" {
		return nil, errors.New("sheetId or sheetTitle is required")
	}

	w, err := sheets.New(ctx, httpClient, sheets.Config{
		SheetTitle:    cfg.SheetTitle,
		SheetID:       cfg.SheetID,
		SheetName:     cfg.SheetName,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.Interval(),
	}, logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}
