package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/logging"
)

func newClearCmd(cfg *config.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored history and summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "Delete all stored posts and summaries? [y/N] ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(line)); a != "y" && a != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, nil, coord.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.coord.Clear(ctx); err != nil {
				return err
			}
			logging.Info("cleared history and summaries")
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
