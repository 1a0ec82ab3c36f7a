package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/momoledger/pkg/parser"
	"github.com/ArionMiles/momoledger/pkg/reader/smsxml"
)

const defaultDumpDir = "testdata/dump"

func dumpCmd(a *app) *cobra.Command {
	var (
		input string
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write rejected message bodies to files, grouped by reason",
		Long: `Parses an SMS backup and writes the body of every rejected message to
<dir>/<reason>/<message id>.txt. Use the output to author classifier rules
and test fixtures. Existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			counts, err := dumpRejected(input, dir, a.logger.With("component", "dump"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, reason := range slices.Sorted(maps.Keys(counts)) {
				fmt.Fprintf(out, "%-18s %d\n", reason, counts[reason])
				total += counts[reason]
			}
			fmt.Fprintf(out, "dumped %d messages to %s\n", total, dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "SMS backup XML file")
	cmd.Flags().StringVarP(&dir, "out", "o", defaultDumpDir, "output directory")
	return cmd
}

// dumpRejected writes rejected bodies under dir and returns how many were
// written per reason.
func dumpRejected(input, dir string, logger *slog.Logger) (map[string]int, error) {
	proc := parser.NewProcessor(nil)
	counts := make(map[string]int)

	for raw, err := range smsxml.Messages(input) {
		if err != nil {
			return counts, fmt.Errorf("reading %s: %w", input, err)
		}

		_, err = proc.Process(raw)
		if err == nil {
			continue
		}

		reason := parser.ReasonOf(err)
		written, err := dumpMessage(filepath.Join(dir, reason), raw.ExternalID, raw.Body)
		if err != nil {
			logger.Warn("failed to dump message", "message_id", raw.ExternalID, "error", err)
			continue
		}
		if written {
			counts[reason]++
		}
	}

	return counts, nil
}

func dumpMessage(dir, id, body string) (bool, error) {
	name := sanitizeFilename(id)
	if name == "" {
		name = "no-id"
	}
	path := filepath.Join(dir, name+".txt")

	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("creating dump directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.WriteString(f, body); err != nil {
		f.Close()
		return false, fmt.Errorf("writing file: %w", err)
	}
	return true, f.Close()
}

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]`)
	underscores = regexp.MustCompile(`_+`)
)

func sanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")

	name = strings.Trim(name, "_.")
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}
