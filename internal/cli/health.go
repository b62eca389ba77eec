package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the running bot's ops endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, cfg.ServerURL+"/healthz", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("probe %s: %w", cfg.ServerURL, err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: %s", resp.Status)
			}

			NewOutput(cfg.Output).PrintMessage("ok")
			return nil
		},
	}
}
