package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brensch/chainreaction/config"
	"github.com/brensch/chainreaction/logging"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chainreaction",
		Short: "Chain Reaction simulation engine and batch runner",
		Long: `chainreaction plays batches of Chain Reaction games between
scripted strategies and reports how often each seat wins.

Settings come from an optional YAML file (--config), then CHAINREACTION_*
environment variables, then flags.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", "", "Path to a .env file with CHAINREACTION_* variables")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json, pretty")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newShowCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "chainreaction version %s\n", version)
			}
		},
	}
}

// addGameFlags registers the flags shared by commands that play games.
func addGameFlags(cmd *cobra.Command) {
	cmd.Flags().Int("width", 0, "Board width")
	cmd.Flags().Int("height", 0, "Board height")
	cmd.Flags().StringSlice("players", nil, "Strategy per seat, in turn order (random, avoid-others, form-chains)")
	cmd.Flags().Int64("seed", 0, "Random seed; 0 picks one from the clock")
}

// loadConfig resolves the config file and environment, then applies every
// flag the user set explicitly, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.LoadFiles(path, envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Lookup("width") != nil && flags.Changed("width") {
		cfg.Width, _ = flags.GetInt("width")
	}
	if flags.Lookup("height") != nil && flags.Changed("height") {
		cfg.Height, _ = flags.GetInt("height")
	}
	if flags.Lookup("players") != nil && flags.Changed("players") {
		cfg.Players, _ = flags.GetStringSlice("players")
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Lookup("games") != nil && flags.Changed("games") {
		cfg.Games, _ = flags.GetInt("games")
	}
	if flags.Lookup("archive-dir") != nil && flags.Changed("archive-dir") {
		cfg.Archive.Dir, _ = flags.GetString("archive-dir")
	}
	if flags.Lookup("ledger") != nil && flags.Changed("ledger") {
		cfg.Ledger.Path, _ = flags.GetString("ledger")
	}
	if flags.Lookup("bridge") != nil && flags.Changed("bridge") {
		cfg.Bridge.Addr, _ = flags.GetString("bridge")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
}
