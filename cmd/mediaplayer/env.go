package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/PizzaHomicide/mediaplayer/internal/config"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only list variables that are set")
}

var (
	envNameStyle  = lipgloss.NewStyle().Bold(true)
	envDescStyle  = lipgloss.NewStyle().Faint(true)
	envValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#43BF6D"))
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the supported environment variable overrides",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))

		for _, env := range config.SupportedEnvVars() {
			value, present := os.LookupEnv(env.Name)
			if setOnly && !present {
				continue
			}

			line := envNameStyle.Render(env.Name)
			if present {
				line += "=" + envValueStyle.Render(value)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, line)
			_, _ = fmt.Fprintln(out, envDescStyle.Render("    "+env.Desc))
		}
	},
}
