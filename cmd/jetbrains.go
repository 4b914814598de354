package cmd

import (
	"github.com/spf13/cobra"
)

// jetbrainsCmd represents the jetbrains command
var jetbrainsCmd = &cobra.Command{
	Use:   "jetbrains",
	Short: "JetBrains IDEs",
	Long:  "Sweeps license usage data from the JetBrains Account API (https://account.jetbrains.com/)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(cmd.Context(), "jetbrains")
	},
}

func init() {
	rootCmd.AddCommand(jetbrainsCmd)
}
