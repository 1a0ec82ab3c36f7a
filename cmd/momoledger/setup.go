package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/pkg/client"
	"github.com/ArionMiles/momoledger/pkg/config"
	"github.com/ArionMiles/momoledger/pkg/writer/sheets"
)

func setupCmd(a *app) *cobra.Command {
	var (
		secretsPath string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authorize access to Google Sheets for the sheets writer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== momoledger setup ===")
			fmt.Fprintln(out)

			if _, err := os.Stat(secretsPath); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("credentials file not found: %s\n\nTo get your credentials:\n"+
					"1. Go to https://console.cloud.google.com/apis/credentials\n"+
					"2. Create an OAuth 2.0 Client ID (Desktop application)\n"+
					"3. Download the JSON file and save it as '%s'", secretsPath, secretsPath)
			}

			if !force && client.Status(client.TokenFile).Present {
				fmt.Fprintf(out, "Already authenticated! Token file exists: %s\n", client.TokenFile)
				fmt.Fprintln(out)
				fmt.Fprintln(out, "To re-authenticate, run: momoledger setup --force")
				return nil
			}

			if force {
				if err := os.Remove(client.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
					a.logger.Warn("failed to remove existing token", "error", err)
				}
				fmt.Fprintln(out, "Forcing re-authentication...")
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, "Required permissions:")
			fmt.Fprintln(out, "  - Sheets: Read and write spreadsheets")
			fmt.Fprintln(out)

			if _, err := client.New(cmd.Context(), secretsPath, client.Options{Logger: a.logger}, sheets.Scope); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "=== Setup complete ===")
			fmt.Fprintf(out, "Token saved to: %s\n", client.TokenFile)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next: set MOMO_WRITER=sheets and GSHEETS_TITLE or GSHEETS_ID, then run 'momoledger ingest'.")
			return nil
		},
	}

	cmd.Flags().StringVar(&secretsPath, "credentials", config.ClientSecretFile, "path to the OAuth client secret JSON file")
	cmd.Flags().BoolVar(&force, "force", false, "discard the cached token and authenticate again")
	return cmd
}
