package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakout/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// RootConfig carries the persistent flags every subcommand sees.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
}

// load reads --config, or the defaults when none was given.
func (rc *RootConfig) load() (*config.Config, error) {
	if rc.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(rc.ConfigPath)
}

// dbPath is --db, then the config's journal database.
func (rc *RootConfig) dbPath() (string, error) {
	if rc.DBPath != "" {
		return rc.DBPath, nil
	}
	cfg, err := rc.load()
	if err != nil {
		return "", err
	}
	if cfg.Journal.DBPath == "" {
		return "", fmt.Errorf("no journal database: pass --db or set journal.db_path")
	}
	return cfg.Journal.DBPath, nil
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "breakout",
		Short:         "Breakout: CVD trend-line breakout backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite journal database (overrides journal.db_path)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides log.level)")

	cmd.AddCommand(
		newRunCmd(rc),
		newJournalCmd(rc),
		newConfigCmd(),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "breakout (%s)\n", Version)
		},
	})

	return cmd
}

func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}
