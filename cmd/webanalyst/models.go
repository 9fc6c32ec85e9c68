package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured model presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			runner := appInstance.GetRunner()
			def := runner.DefaultModel()
			for _, m := range runner.Models() {
				marker := ""
				if m == def {
					marker = " (default)"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", m, marker); err != nil {
					return fmt.Errorf("write models: %w", err)
				}
			}
			return nil
		},
	}
}
