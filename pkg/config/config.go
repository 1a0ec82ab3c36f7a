// Package config loads momoledger configuration from a JSON file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ClientSecretFile is the default path to the Google OAuth credentials JSON file.
const ClientSecretFile = "data/client_secret.json"

// Defaults applied when a key is not set anywhere.
const (
	DefaultReader   = "smsxml"
	DefaultWriter   = "sqlite"
	DefaultStore    = "sqlite"
	DefaultDBPath   = "data/momo.sqlite"
	DefaultHTTPAddr = ":5000"
)

// Config holds the application configuration.
// Every key can be set in the JSON config file or as an environment variable.
type Config struct {
	// ReaderPlugin is the name of the reader plugin to use.
	// Environment variable: MOMO_READER
	ReaderPlugin string `koanf:"MOMO_READER"`

	// WriterPlugin is the name of the writer plugin to use.
	// Environment variable: MOMO_WRITER
	WriterPlugin string `koanf:"MOMO_WRITER"`

	// ReaderConfig is the JSON configuration for the reader plugin.
	// Environment variable: MOMO_READER_CONFIG (a JSON string); in the config
	// file it may also be a nested object.
	ReaderConfig json.RawMessage `koanf:"-"`

	// WriterConfig is the JSON configuration for the writer plugin.
	// Environment variable: MOMO_WRITER_CONFIG
	WriterConfig json.RawMessage `koanf:"-"`

	// Store selects the queryable store used by the HTTP API: sqlite or postgres.
	// Environment variable: MOMO_STORE
	Store string `koanf:"MOMO_STORE"`

	// DBPath is the SQLite database path.
	// Environment variable: MOMO_DB_PATH
	DBPath string `koanf:"MOMO_DB_PATH"`

	// HTTPAddr is the listen address of the query API.
	// Environment variable: MOMO_HTTP_ADDR
	HTTPAddr string `koanf:"MOMO_HTTP_ADDR"`

	// Environment variables: LOG_LEVEL, LOG_FILE, LOG_JSON
	LogLevel string `koanf:"LOG_LEVEL"`
	LogFile  string `koanf:"LOG_FILE"`
	LogJSON  bool   `koanf:"LOG_JSON"`

	// PostgreSQL configuration (used by the postgres writer and store)
	Postgres PostgresConfig `koanf:",squash"`

	// Google Sheets configuration (used by the sheets writer)
	Sheets SheetsConfig `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// SheetsConfig holds Google Sheets configuration.
type SheetsConfig struct {
	Title string `koanf:"GSHEETS_TITLE"`
	ID    string `koanf:"GSHEETS_ID"`
	Name  string `koanf:"GSHEETS_NAME"`
}

// prefixes limits which environment variables are loaded.
var prefixes = []string{"MOMO_", "LOG_", "POSTGRES_", "GSHEETS_"}

// Load reads configuration from path (if non-empty) and then from the
// environment. Environment variables take precedence over the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), kJson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	var err error
	if cfg.ReaderConfig, err = rawJSON(k, "MOMO_READER_CONFIG"); err != nil {
		return Config{}, err
	}
	if cfg.WriterConfig, err = rawJSON(k, "MOMO_WRITER_CONFIG"); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// envKey drops unrelated environment variables so they cannot collide with config keys.
func envKey(key string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return key
		}
	}
	return ""
}

// rawJSON returns the plugin configuration stored under key, which is either a
// JSON string (environment) or a nested object (config file).
func rawJSON(k *koanf.Koanf, key string) (json.RawMessage, error) {
	switch v := k.Get(key).(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("%s: invalid JSON", key)
		}
		return json.RawMessage(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return data, nil
	}
}

func (c *Config) applyDefaults() {
	if c.ReaderPlugin == "" {
		c.ReaderPlugin = DefaultReader
	}
	if c.WriterPlugin == "" {
		c.WriterPlugin = DefaultWriter
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
}

// WriterConfigFor returns the plugin configuration for the named writer.
// MOMO_WRITER_CONFIG applies to the selected writer; otherwise the sqlite,
// postgres and sheets plugins are configured from their dedicated keys.
func (c Config) WriterConfigFor(name string) (json.RawMessage, error) {
	if name == c.WriterPlugin && len(c.WriterConfig) > 0 {
		return c.WriterConfig, nil
	}

	var v any
	switch name {
	case "sqlite":
		v = map[string]any{"path": c.DBPath}
	case "postgres":
		v = map[string]any{
			"host":     c.Postgres.Host,
			"port":     c.Postgres.Port,
			"database": c.Postgres.Database,
			"user":     c.Postgres.User,
			"password": c.Postgres.Password,
			"sslmode":  c.Postgres.SSLMode,
		}
	case "sheets":
		v = map[string]any{
			"sheetTitle": c.Sheets.Title,
			"sheetId":    c.Sheets.ID,
			"sheetName":  c.Sheets.Name,
		}
	default:
		return c.WriterConfig, nil
	}
	return json.Marshal(v)
}

// StoreConfig returns the plugin configuration of the queryable store.
func (c Config) StoreConfig() (json.RawMessage, error) {
	return c.WriterConfigFor(c.Store)
}
