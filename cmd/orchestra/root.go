package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "orchestra",
	Short: "Multi-agent orchestration for Claude",
	Long: `Orchestra decomposes a request into a plan of dependent tasks, assembles a
team of specialist agents, runs the tasks under the plan's strategy and
returns one deliverable.

Settings are read from ~/.config/orchestra/config.yaml, the nearest
.orchestra.yaml and ORCHESTRA_* environment variables, in that order.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Settings file (overrides user and project settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Human-readable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)
}
