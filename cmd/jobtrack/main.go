package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "jobtrack",
	Short: "Track job applications and query them from the command line",
	Long: `jobtrack keeps a per-owner record of job applications and answers
list and statistics queries over them.

Run "jobtrack start" to serve the HTTP API, then use the jobs, stats and
admin commands against the running server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		fmt.Fprintln(os.Stderr, "Run 'jobtrack --help' for usage.")
		os.Exit(1)
	}
}
