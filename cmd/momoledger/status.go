package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/client"
	"github.com/ArionMiles/momoledger/pkg/config"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, credentials and store connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== momoledger status ===")
			fmt.Fprintln(out)

			allGood := true
			check := func(ok bool) {
				if !ok {
					allGood = false
				}
			}

			fmt.Fprintf(out, "Reader: %s\n", a.cfg.ReaderPlugin)
			fmt.Fprintf(out, "Writer: %s\n", a.cfg.WriterPlugin)
			fmt.Fprintf(out, "Store:  %s\n", a.cfg.Store)
			fmt.Fprintln(out)

			check(a.checkPlugins(out))
			check(a.checkStore(cmd.Context(), out))

			scopes, err := a.registry.GetAllScopes(a.cfg.ReaderPlugin, a.cfg.WriterPlugin)
			if err == nil && len(scopes) > 0 {
				check(checkCredentials(out, config.ClientSecretFile))
				check(checkToken(out, client.TokenFile))
			}

			fmt.Fprintln(out)
			if allGood {
				fmt.Fprintln(out, "Status: ✓ Ready to run")
				return nil
			}
			fmt.Fprintln(out, "Status: ✗ Configuration issues detected")
			return errors.New("status checks failed")
		},
	}
}

func (a *app) checkPlugins(out io.Writer) bool {
	ok := true
	if _, err := a.registry.GetReader(a.cfg.ReaderPlugin); err != nil {
		fmt.Fprintf(out, "Reader plugin: ✗ %v\n", err)
		ok = false
	}
	if _, err := a.registry.GetWriter(a.cfg.WriterPlugin); err != nil {
		fmt.Fprintf(out, "Writer plugin: ✗ %v\n", err)
		ok = false
	}
	if ok {
		fmt.Fprintln(out, "Plugins: ✓ Registered")
	}
	return ok
}

func (a *app) checkStore(ctx context.Context, out io.Writer) bool {
	fmt.Fprintf(out, "Store (%s): ", a.cfg.Store)

	storeConfig, err := a.cfg.StoreConfig()
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := a.registry.CreateStore(ctx, a.cfg.Store, storeConfig, a.logger.With("component", "store"))
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return false
	}
	defer store.Close()

	records, err := store.Query(ctx, api.Filter{})
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return false
	}
	fmt.Fprintf(out, "✓ Connected (%d transactions)\n", len(records))
	return true
}

func checkCredentials(out io.Writer, path string) bool {
	fmt.Fprintf(out, "Credentials file (%s): ", path)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, "✗ Not found")
		return false
	}
	fmt.Fprintln(out, "✓ Found")
	return true
}

func checkToken(out io.Writer, path string) bool {
	fmt.Fprintf(out, "OAuth token (%s): ", path)
	status := client.Status(path)
	switch {
	case !status.Present:
		fmt.Fprintln(out, "✗ Not found (run 'momoledger setup')")
		return false
	case status.Expiry.Before(time.Now()) && status.Refreshing:
		fmt.Fprintln(out, "⚠ Expired (will refresh on next run)")
	case status.Expiry.Before(time.Now()):
		fmt.Fprintln(out, "✗ Expired without a refresh token (run 'momoledger setup --force')")
		return false
	default:
		fmt.Fprintf(out, "✓ Valid (expires: %s)\n", status.Expiry.Format(time.RFC3339))
	}
	return true
}
