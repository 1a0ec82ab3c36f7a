package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/internal/daemon"
	"github.com/ArionMiles/momoledger/pkg/client"
	"github.com/ArionMiles/momoledger/pkg/config"
	"github.com/ArionMiles/momoledger/pkg/parser"
	"github.com/ArionMiles/momoledger/pkg/reader/smsxml"
)

func ingestCmd(a *app) *cobra.Command {
	var (
		input  string
		writer string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse an SMS backup and write the accepted transactions",
		Long: `Reads every message from the configured reader (by default an SMS backup
XML file), classifies and extracts it, and hands accepted records to the
configured writer. Rejected messages are logged and counted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts, err := a.ingestOptions(input, writer)
			if err != nil {
				return err
			}

			httpClient, err := a.oauthClient(ctx, opts.Reader, opts.Writer)
			if err != nil {
				return err
			}

			summary, err := daemon.New(a.registry, httpClient, a.logger).Run(ctx, opts)
			printSummary(cmd.OutOrStdout(), summary)
			if err != nil {
				return err
			}

			if strict && summary.Tally.TotalRejected() > 0 {
				return fmt.Errorf("%d messages rejected", summary.Tally.TotalRejected())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "SMS backup XML file (overrides the reader's configured path)")
	cmd.Flags().StringVarP(&writer, "writer", "w", "", "writer plugin (overrides MOMO_WRITER)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any message is rejected")
	return cmd
}

func (a *app) ingestOptions(input, writer string) (daemon.Options, error) {
	opts := daemon.Options{
		Reader:       a.cfg.ReaderPlugin,
		ReaderConfig: a.cfg.ReaderConfig,
		Writer:       a.cfg.WriterPlugin,
	}

	if input != "" {
		data, err := json.Marshal(smsxml.Config{Path: input})
		if err != nil {
			return daemon.Options{}, fmt.Errorf("encoding reader config: %w", err)
		}
		opts.ReaderConfig = data
	}
	if writer != "" {
		opts.Writer = writer
	}

	writerConfig, err := a.cfg.WriterConfigFor(opts.Writer)
	if err != nil {
		return daemon.Options{}, fmt.Errorf("building writer config: %w", err)
	}
	opts.WriterConfig = writerConfig
	return opts, nil
}

// oauthClient returns an authorized client when one of the plugins needs
// Google scopes, and nil otherwise.
func (a *app) oauthClient(ctx context.Context, reader, writer string) (*http.Client, error) {
	scopes, err := a.registry.GetAllScopes(reader, writer)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	httpClient, err := client.New(ctx, config.ClientSecretFile, client.Options{Logger: a.logger}, scopes...)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}
	return httpClient, nil
}

func printSummary(w io.Writer, s daemon.Summary) {
	fmt.Fprintf(w, "accepted: %d\n", s.Tally.Accepted)
	fmt.Fprintf(w, "written:  %d\n", s.Written)
	fmt.Fprintf(w, "rejected: %d\n", s.Tally.TotalRejected())
	for _, reason := range slices.Sorted(maps.Keys(s.Tally.Rejected)) {
		fmt.Fprintf(w, "  %-18s %d\n", reason, s.Tally.Rejected[reason])
	}
	if n := s.Tally.Warnings[parser.ReasonBalanceParse]; n > 0 {
		fmt.Fprintf(w, "balance left empty: %d\n", n)
	}
}
