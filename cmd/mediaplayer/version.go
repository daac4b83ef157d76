package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/PizzaHomicide/mediaplayer/internal/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
	},
}
