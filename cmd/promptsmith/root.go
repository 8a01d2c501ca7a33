package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "promptsmith",
	Short: "Iterative prompt improvement engine",
	Long: `Promptsmith improves agent prompts round by round: it runs a prompt
against a test suite, scores the outputs with a judge model, asks an
improver model for concrete edits, and applies the edits you approve.

Every round is persisted to a session file, so a run can be stopped at
any point and resumed later with 'promptsmith resume'.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}
