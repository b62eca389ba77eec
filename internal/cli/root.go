package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "empirectl",
		Short: "Ops tool for the Legendary Empire bot",
		Long: `empirectl inspects and exports the Legendary Empire bot's state.

Stats and export read the storage backend directly; health probes the
running bot's ops HTTP endpoint.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Ops server URL (env: EMPIRECTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Storage backend: sqlite, redis (env: EMPIRECTL_STORAGE)")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabasePath, "db-path", cfg.DatabasePath, "SQLite database path (env: EMPIRECTL_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL (env: EMPIRECTL_REDIS_URL)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
