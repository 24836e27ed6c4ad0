package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/export"
	"github.com/abelbrown/feedkeeper/internal/history"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored history as JSON, CSV or text",
		Long: `Write every stored day to a file named feedkeeper-export-<date>.<ext>
in the current directory, or to --out. Use --out - for stdout.

Examples:
  feedkeeper export --format csv
  feedkeeper export --format json --out - | jq length`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, cfg, nil, coord.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			h, err := rt.coord.History(ctx)
			if err != nil {
				return err
			}
			if len(h) == 0 {
				return export.ErrNoData
			}

			if out == "-" {
				return export.Write(cmd.OutOrStdout(), f, h)
			}
			if out == "" {
				out = export.Filename(f, time.Now())
			}
			if err := writeExport(out, f, h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, csv or txt")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

// writeExport creates path and writes h to it. A failed close is reported:
// the data may not have reached disk.
func writeExport(path string, f export.Format, h history.History) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return export.Write(file, f, h)
}
