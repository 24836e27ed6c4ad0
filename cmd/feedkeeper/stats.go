package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/rollup"
	"github.com/abelbrown/feedkeeper/internal/store"
)

func newStatsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored history and summary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, nil, coord.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()
			out := cmd.OutOrStdout()

			h, err := rt.coord.History(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total records:         %s\n", humanize.Comma(int64(history.Total(h))))
			fmt.Fprintf(out, "Days kept:             %d of %d\n", len(h), cfg.Collection.RetentionDays)
			if at, err := rt.store.UpdatedAt(ctx, store.KeyFeedHistory); err == nil && !at.IsZero() {
				fmt.Fprintf(out, "Last saved:            %s\n", humanize.Time(at))
			}

			var st coord.State
			if _, err := rt.store.GetJSON(ctx, store.KeyCollectionState, &st); err != nil {
				return err
			}
			fmt.Fprintf(out, "Collecting at exit:    %t\n", st.IsCollecting)
			fmt.Fprintf(out, "Auto-comment:          %t\n", st.AutoComment)

			dates := history.Dates(h)
			if len(dates) > 0 {
				fmt.Fprintf(out, "\nBy day (cap %d):\n", cfg.Collection.PerDayCap)
				for _, d := range dates {
					fmt.Fprintf(out, "  %-12s %5s\n", d, humanize.Comma(int64(history.Count(h, d))))
				}

				var all []model.PostRecord
				for _, d := range dates {
					all = append(all, h[d]...)
				}
				fmt.Fprintln(out, "\nTop authors:")
				for _, a := range rollup.TopAuthors(all, rollup.DefaultTopN) {
					fmt.Fprintf(out, "  %-35s %d\n", truncate(a.Name, 35), a.Count)
				}

				types := map[string]int{}
				for _, r := range all {
					types[model.ContentType(r.Content)]++
				}
				fmt.Fprintln(out, "\nContent types:")
				for _, tag := range append(model.ContentTags(), "") {
					if n := types[tag]; n > 0 {
						label := tag
						if label == "" {
							label = "[Text]"
						}
						fmt.Fprintf(out, "  %-20s %d\n", label, n)
					}
				}
			}

			sums, err := rt.coord.Summaries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSummaries stored:      %d\n", len(sums))
			if latest, ok, err := rt.coord.LatestSummary(ctx); err == nil && ok {
				at := time.UnixMilli(latest.Timestamp)
				fmt.Fprintf(out, "Latest summary:        %s (%s)\n", latest.Date, humanize.Time(at))
			}
			return nil
		},
	}
}
