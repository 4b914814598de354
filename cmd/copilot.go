package cmd

import (
	"github.com/spf13/cobra"
)

// copilotCmd represents the copilot command
var copilotCmd = &cobra.Command{
	Use:   "copilot",
	Short: "GitHub Copilot",
	Long:  "Sweeps Copilot seat usage data from the GitHub org billing API (https://api.github.com/)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(cmd.Context(), "copilot")
	},
}

func init() {
	rootCmd.AddCommand(copilotCmd)
}
