package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/extract"
)

func newRulesCmd(cfg *config.Config) *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective extraction rules",
		Long: `Print the extraction rules in use: the built-in defaults overlaid with
extraction.rules_file. Save the output, edit it, and point rules_file at it
when the feed markup changes.

Examples:
  feedkeeper rules > rules.json
  feedkeeper rules --check rules.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Extraction.RulesFile
			if check != "" {
				path = check
			}
			r, err := extract.LoadRules(path)
			if err != nil {
				return err
			}
			if check != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d content strategies)\n", check, len(r.Content))
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "validate a rules file and exit")
	return cmd
}
