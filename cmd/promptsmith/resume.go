package main

import (
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/promptsmith/internal/config"
	"github.com/ShayCichocki/promptsmith/internal/session"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-file>",
	Short: "Resume an improvement cycle from its session file",
	Long: `Resume a previous run from its session history file.

The cycle picks up with the prompt as of the last recorded round;
completion state is cleared so further rounds can be added. The same
flags as 'run' apply, including --auto and the termination overrides.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVarP(&runSuitePath, "suite", "t", "", "Test suite YAML file (required)")
	resumeCmd.Flags().BoolVar(&runAuto, "auto", false, "Approve all suggestions and run unattended")
	resumeCmd.Flags().Float64Var(&runTargetScore, "target-score", 0, "Override the target score termination condition")
	resumeCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Override the maximum rounds termination condition")
	resumeCmd.Flags().Float64Var(&runMaxCost, "max-cost", 0, "Override the maximum cost termination condition in dollars")
	resumeCmd.Flags().BoolVar(&runBedrock, "bedrock", false, "Use AWS Bedrock instead of the Anthropic API")
	resumeCmd.Flags().StringVar(&runWritePrompt, "write-prompt", "", "Write the final improved prompt to this file")
	resumeCmd.Flags().StringVar(&runPricingPath, "pricing", "", "Pricing table YAML file (default built-in model rates)")
	resumeCmd.MarkFlagRequired("suite")
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyCycleFlags(cfg)

	suite, err := models.LoadTestSuite(runSuitePath)
	if err != nil {
		return err
	}

	sess, err := session.ResumeSession(args[0], session.Options{AutoSave: true})
	if err != nil {
		return err
	}

	return driveCycle(cfg, sess, suite.Cases)
}
