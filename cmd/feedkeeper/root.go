package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/logging"
)

// flags shared by every command.
type globalFlags struct {
	configPath string
	keysPath   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cfg := new(config.Config)

	root := &cobra.Command{
		Use:   "feedkeeper",
		Short: "Collect a social feed into daily history and summaries",
		Long: `feedkeeper turns snapshots of a rendered social feed into deduplicated
daily records, stored locally, and writes daily summaries of them.

Data lives in ~/.feedkeeper (override with FEEDKEEPER_HOME).

Environment:
  OPENAI_API_KEY      OpenAI key for summaries
  ANTHROPIC_API_KEY   Anthropic key for summaries (models named claude*)
  FEEDKEEPER_MODEL    Summary model (default: gpt-4o)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(g)
			if err != nil {
				return err
			}
			*cfg = *loaded
			if _, err := dataDir(); err != nil {
				return err
			}
			return logging.Init(config.Dir(), g.verbose)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.feedkeeper/config.json)")
	root.PersistentFlags().StringVar(&g.keysPath, "keys", "", ".env or keys.sh file with API keys")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug lines in the run log")

	root.AddCommand(
		newWatchCmd(cfg),
		newCollectCmd(cfg),
		newSummaryCmd(cfg),
		newExportCmd(cfg),
		newStatsCmd(cfg),
		newClearCmd(cfg),
		newEventsCmd(),
		newRulesCmd(cfg),
	)
	return root
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if g.keysPath != "" {
		if err := cfg.LoadKeysFromFile(g.keysPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
