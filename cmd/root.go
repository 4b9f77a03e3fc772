package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqforge/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "mcqforge",
	Short: "UPSC-style MCQ generator",
	Long: "mcqforge builds chapter outlines, generates constrained true/false statement batches " +
		"and turns them into UPSC-style combination questions.",
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MCQFORGE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/mcqforge/config.yaml)")
	rootCmd.PersistentFlags().String("log", "", "Logger mode: development or production")

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(statementsCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(produceCmd)
	rootCmd.AddCommand(mcqCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file or MCQFORGE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
