// Command momoledger turns mobile-money SMS backups into a queryable ledger.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/internal/plugins"
	"github.com/ArionMiles/momoledger/pkg/config"
	"github.com/ArionMiles/momoledger/pkg/logging"
)

const defaultConfigFile = "config.json"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	logger   *slog.Logger
	registry *plugins.Registry
	closeLog func() error
}

func main() {
	a := &app{}
	if err := a.execute(newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "momoledger",
		Short:         "Classify mobile-money SMS notifications into a transaction ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a JSON config file (default: ./config.json if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		ingestCmd(a),
		serveCmd(a),
		classifyCmd(),
		dumpCmd(a),
		pluginsCmd(a),
		setupCmd(a),
		statusCmd(a),
	)
	return root
}

// execute runs root and then closes the log file, whether or not the
// command failed.
func (a *app) execute(root *cobra.Command) error {
	err := root.Execute()
	if a.closeLog != nil {
		err = errors.Join(err, a.closeLog())
		a.closeLog = nil
	}
	return err
}

func (a *app) init() error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.JSON = cfg.LogJSON
	logCfg.File = cfg.LogFile

	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	registry, err := plugins.Default()
	if err != nil {
		return errors.Join(fmt.Errorf("registering plugins: %w", err), closeLog())
	}
	a.logger = logger
	a.closeLog = closeLog
	a.registry = registry

	logger.Debug("configuration loaded",
		"config_file", path,
		"reader", cfg.ReaderPlugin,
		"writer", cfg.WriterPlugin,
		"store", cfg.Store,
	)
	return nil
}
