package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/logging"
)

func newCollectCmd(cfg *config.Config) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass and print the result",
		Long: `Take one snapshot, extract its posts and save the new ones.

Examples:
  feedkeeper collect --file feed.html
  feedkeeper collect --feed https://example.com/rss`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSource(cfg, src)
			if err != nil {
				return err
			}
			rt, err := newRuntime(ctx, cfg, s, coord.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.coord.Pass(ctx)
			if err != nil {
				return err
			}
			logging.Info("collected", "source", s.Name(), "new", res.New, "saved", res.Saved)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:      %s\n", s.Name())
			fmt.Fprintf(out, "Candidates:  %d\n", res.Candidates)
			fmt.Fprintf(out, "Promoted:    %d\n", res.Promoted)
			fmt.Fprintf(out, "Duplicates:  %d\n", res.Duplicates)
			fmt.Fprintf(out, "New:         %d\n", res.New)
			fmt.Fprintf(out, "Saved:       %d\n", res.Saved)
			fmt.Fprintf(out, "Took:        %s\n", res.Dur.Round(time.Millisecond))

			// Give chosen automation a chance to run before exit.
			rt.auto.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&src.file, "file", "", "saved HTML snapshot")
	cmd.Flags().StringVar(&src.url, "url", "", "HTML page to fetch")
	cmd.Flags().StringVar(&src.feed, "feed", "", "RSS or Atom feed URL")
	return cmd
}
