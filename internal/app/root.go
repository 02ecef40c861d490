// Package app contains the Cobra command tree for feedbackwatch.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagData    []string
)

var rootCmd = &cobra.Command{
	Use:   "feedbackwatch",
	Short: "Competency score aggregation for 360-degree feedback",
	Long: `feedbackwatch turns AI-analyzed 360-degree feedback into trustworthy
competency scores. It weights reviewers by their relationship to the reviewed
person, down-weights statistical outliers, attaches a confidence level to every
score, and tracks how scores move over time.

Feedback exports (JSON or YAML) are read from data_dir in the config file or
from the paths given with --data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("feedbackwatch", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  report    Aggregate competency scores with confidence levels")
		fmt.Println("  coverage  Show how much feedback backs the scores")
		fmt.Println("  suggest   Generate ranked development recommendations")
		fmt.Println("  review    Check the quality of written feedback")
		fmt.Println("  track     Snapshot and compare scores over time")
		fmt.Println("  watch     Re-run the analysis when feedback data changes")
		fmt.Println("  mcp       Serve the analysis over MCP stdio")
		fmt.Println("  doctor    Check whether the setup is healthy")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/feedbackwatch/config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&flagData, "data", nil, "Feedback export files or directories (default: data_dir from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging on stderr")
}
