package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/internal/daemon"
	"github.com/ArionMiles/momoledger/pkg/metrics"
	"github.com/ArionMiles/momoledger/pkg/server"
)

func serveCmd(a *app) *cobra.Command {
	var (
		addr  string
		input string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transactions API over HTTP",
		Long: `Serves stored transactions from the configured store (MOMO_STORE) as JSON.
With --input, the backup is ingested into the store before serving, and its
parser outcomes are exported on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			storeConfig, err := a.cfg.StoreConfig()
			if err != nil {
				return fmt.Errorf("building store config: %w", err)
			}

			rec := metrics.New()

			if input != "" {
				opts, err := a.ingestOptions(input, a.cfg.Store)
				if err != nil {
					return err
				}
				summary, err := daemon.New(a.registry, nil, a.logger, rec).Run(ctx, opts)
				if err != nil {
					return fmt.Errorf("ingesting %s: %w", input, err)
				}
				printSummary(cmd.OutOrStdout(), summary)
			}

			store, err := a.registry.CreateStore(ctx, a.cfg.Store, storeConfig, a.logger.With("component", "store", "plugin", a.cfg.Store))
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			return server.New(store, a.logger, rec).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides MOMO_HTTP_ADDR)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "SMS backup XML file to ingest before serving")
	return cmd
}
