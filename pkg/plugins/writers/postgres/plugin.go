// Package postgres provides a plugin wrapper for the PostgreSQL store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/plugins/common"
	pgwriter "github.com/ArionMiles/momoledger/pkg/writer/postgres"
)

// Plugin implements the WriterPlugin interface for PostgreSQL.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "postgres"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store transaction records in PostgreSQL, ignoring duplicate message ids"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return common.Schema(map[string]any{
		"url":      common.StringProp("Connection URL; overrides the discrete fields"),
		"host":     common.StringProp("PostgreSQL host address"),
		"port":     map[string]any{"type": "integer", "description": "PostgreSQL port", "default": 5432},
		"database": common.StringProp("Database name"),
		"user":     common.StringProp("Database user"),
		"password": common.StringProp("Database password"),
		"sslmode": map[string]any{
			"type":        "string",
			"description": "SSL mode",
			"default":     "disable",
			"enum":        []string{"disable", "require", "verify-ca", "verify-full"},
		},
		"maxPoolSize": map[string]any{"type": "integer", "description": "Maximum pool connections", "default": 10},
	})
}

// Config represents the PostgreSQL store configuration.
type Config struct {
	common.Batch
	URL         string `json:"url,omitempty"`
	Host        string `json:"host"`
	Port        int    `json:"port,omitempty"`
	Database    string `json:"database"`
	User        string `json:"user"`
	Password    string `json:"password"`
	SSLMode     string `json:"sslmode,omitempty"`
	MaxPoolSize int    `json:"maxPoolSize,omitempty"`
}

// NewWriter connects to PostgreSQL.
func (p *Plugin) NewWriter(ctx context.Context, _ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	s, err := p.open(ctx, configData, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore connects to PostgreSQL for querying.
func (p *Plugin) NewStore(ctx context.Context, configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	s, err := p.open(ctx, configData, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Plugin) open(ctx context.Context, configData json.RawMessage, logger *slog.Logger) (*pgwriter.Store, error) {
	var cfg Config
	if err := common.Decode(p.Name(), configData, &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" && (cfg.Host == "" || cfg.Database == "" || cfg.User == "") {
		return nil, errors.New("url or host, database and user are required")
	}

	return pgwriter.New(ctx, pgwriter.Config{
		URL:           cfg.URL,
		Host:          cfg.Host,
		Port:          cfg.Port,
		Database:      cfg.Database,
		User:          cfg.User,
		Password:      cfg.Password,
		SSLMode:       cfg.SSLMode,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.Interval(),
		MaxPoolSize:   cfg.MaxPoolSize,
	}, logger)
}
