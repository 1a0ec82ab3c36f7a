package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/internal/plugins"
)

func pluginsCmd(a *app) *cobra.Command {
	var schema bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List available reader and writer plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Readers:")
			for _, p := range a.registry.ListReaders() {
				if err := printPlugin(out, p, schema); err != nil {
					return err
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Writers:")
			for _, p := range a.registry.ListWriters() {
				if err := printPlugin(out, p, schema); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&schema, "schema", false, "print each plugin's configuration schema")
	return cmd
}

func printPlugin(w io.Writer, p plugins.Plugin, schema bool) error {
	line := fmt.Sprintf("  %-10s %s", p.Name(), p.Description())
	if _, ok := p.(plugins.StorePlugin); ok {
		line += " [queryable]"
	}
	if scopes := p.RequiredScopes(); len(scopes) > 0 {
		line += " (oauth: " + strings.Join(scopes, ", ") + ")"
	}
	fmt.Fprintln(w, line)

	if !schema {
		return nil
	}
	data, err := json.MarshalIndent(p.ConfigSchema(), "    ", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s schema: %w", p.Name(), err)
	}
	fmt.Fprintf(w, "    %s\n", data)
	return nil
}
