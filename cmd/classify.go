package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "classify <pages-dir>",
		Short: "Scores the saved pages of one site and prints the report as JSON",
		Long: `Re-runs the location scorer over a directory of saved pages without
crawling anything. Useful for tuning thresholds or inspecting why a page
was accepted or rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := newClassifier(cfg)
			if err != nil {
				return err
			}

			rep, err := cl.ClassifySite(name, args[0])
			if err != nil {
				return fmt.Errorf("classify %s: %w", args[0], err)
			}

			data, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "carrier name to attach to the report")

	return cmd
}
