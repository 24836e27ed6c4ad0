package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/logging"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/rollup"
)

func newSummaryCmd(cfg *config.Config) *cobra.Command {
	var date, prompt string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate and store a day summary",
		Long: `Summarize one day of stored records with the configured model, or with
the built-in template when no model is available, and store the result.

Examples:
  feedkeeper summary
  feedkeeper summary --date 2026-10-18 --prompt "Who posted about hiring?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if date == "" {
				date = model.DateKey(time.Now())
			} else if _, err := time.Parse(model.DateLayout, date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}

			rt, err := newRuntime(ctx, cfg, nil, coord.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.coord.GenerateSummary(ctx, date, prompt)
			if errors.Is(err, rollup.ErrNoRecords) {
				return fmt.Errorf("no records for %s", date)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Err != nil {
				logging.Warn("summarizer failed", "date", date, "err", res.Err)
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: summarizer failed, stored template summary: %v\n", res.Err)
			}
			fmt.Fprintf(out, "Summary for %s (%d posts)\n\n", res.Summary.Date, res.Summary.PostCount)
			fmt.Fprintln(out, res.Summary.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarize, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "question for the model (default from config)")
	return cmd
}
