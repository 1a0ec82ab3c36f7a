package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/parser"
)

// classification is the human-readable result for one body.
type classification struct {
	Body      string   `yaml:"body"`
	Type      string   `yaml:"type"`
	Amount    string   `yaml:"amount,omitempty"`
	Recipient string   `yaml:"recipient,omitempty"`
	Reference string   `yaml:"reference,omitempty"`
	Balance   string   `yaml:"balance,omitempty"`
	Status    string   `yaml:"status,omitempty"`
	Error     string   `yaml:"error,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [body]",
		Short: "Classify a message body and show the extracted fields",
		Long: `Runs the classifier and field extractors on a single body given as
arguments, or on every non-empty line of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()

			if len(args) > 0 {
				return enc.Encode(classify(strings.Join(args, " ")))
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				body := strings.TrimSpace(scanner.Text())
				if body == "" {
					continue
				}
				if err := enc.Encode(classify(body)); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return nil
		},
	}
}

func classify(body string) classification {
	c := classification{Body: body}

	typ, ok := parser.Classify(body)
	if !ok {
		c.Type = "unclassified"
		return c
	}
	c.Type = string(typ)

	fields, err := parser.Extract(body, typ)
	if err != nil {
		c.Error = err.Error()
		return c
	}

	c.Amount = formatAmount(fields.Amount)
	c.Balance = formatAmount(fields.Balance)
	if fields.Recipient != nil {
		c.Recipient = *fields.Recipient
	}
	if fields.Reference != nil {
		c.Reference = *fields.Reference
	}
	c.Status = string(fields.Status)
	for _, w := range fields.Warnings {
		c.Warnings = append(c.Warnings, w.Error())
	}
	return c
}

func formatAmount(n *int64) string {
	if n == nil {
		return ""
	}
	return parser.FormatGrouped(*n) + " " + api.Currency
}
