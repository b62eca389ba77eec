package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all bot state to a timestamped JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			export, err := newAdminService(store).Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if outDir == "-" {
				_, err = os.Stdout.Write(export.Data)
				return err
			}

			path := filepath.Join(outDir, export.Filename)
			if err := os.WriteFile(path, export.Data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Exported to %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory, or '-' for stdout")

	return cmd
}
