package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total and recently active player counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			stats, err := newAdminService(store).Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect stats: %w", err)
			}

			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(stats)
				return nil
			}
			out.PrintMessage(fmt.Sprintf("Total players: %d", stats.TotalPlayers))
			out.PrintMessage(fmt.Sprintf("Active today:  %d", stats.ActiveToday))
			return nil
		},
	}
}
