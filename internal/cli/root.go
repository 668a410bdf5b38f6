// Package cli provides the command-line interface for courtier.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mselway/courtier/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	configPath string
	verbose    bool

	cfg       config.Config
	logger    *slog.Logger
	logCloser func() error
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "courtier",
	Short: "LLM conversation orchestration for game characters",
	Long: `Courtier turns structured game-state snapshots into multi-turn dialogue
with non-player characters, driven by remote LLM completion services.

It manages the context window with rolling summaries, extracts and
approves model-requested game actions, and can mirror game events into a
persistent-memory agent service.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := config.ParseLogLevel(cfg.LogLevel)
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCloser = config.SetupLogger(cfg.LogFile, level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			if err := logCloser(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(testConnectionCmd)
}
