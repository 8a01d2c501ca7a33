package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/promptsmith/internal/api"
	"github.com/ShayCichocki/promptsmith/internal/config"
	"github.com/ShayCichocki/promptsmith/internal/cost"
	"github.com/ShayCichocki/promptsmith/internal/cycle"
	"github.com/ShayCichocki/promptsmith/internal/session"
	"github.com/ShayCichocki/promptsmith/internal/state"
	"github.com/ShayCichocki/promptsmith/internal/tui"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

var (
	runSuitePath   string
	runSessionPath string
	runAuto        bool
	runTargetScore float64
	runMaxRounds   int
	runMaxCost     float64
	runBedrock     bool
	runWritePrompt string
	runPricingPath string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt-file>",
	Short: "Start an improvement cycle for a prompt",
	Long: `Run an improvement cycle against a prompt file.

The prompt file is JSON with id, version, system, userTemplate and
optional customFields. The test suite is YAML with named cases, each
providing template inputs and optional expected output or criteria.

By default each round pauses for review: approve or edit suggestions,
continue, roll back to an earlier round, or stop. With --auto every
suggestion is applied and the cycle runs until a termination condition
matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runImprove,
}

func init() {
	runCmd.Flags().StringVarP(&runSuitePath, "suite", "t", "", "Test suite YAML file (required)")
	runCmd.Flags().StringVarP(&runSessionPath, "session", "o", "", "Session history file (default under the sessions dir)")
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "Approve all suggestions and run unattended")
	runCmd.Flags().Float64Var(&runTargetScore, "target-score", 0, "Override the target score termination condition")
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Override the maximum rounds termination condition")
	runCmd.Flags().Float64Var(&runMaxCost, "max-cost", 0, "Override the maximum cost termination condition in dollars")
	runCmd.Flags().BoolVar(&runBedrock, "bedrock", false, "Use AWS Bedrock instead of the Anthropic API")
	runCmd.Flags().StringVar(&runWritePrompt, "write-prompt", "", "Write the final improved prompt to this file")
	runCmd.Flags().StringVar(&runPricingPath, "pricing", "", "Pricing table YAML file (default built-in model rates)")
	runCmd.MarkFlagRequired("suite")
}

func runImprove(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyCycleFlags(cfg)

	prompt, err := loadPromptFile(args[0])
	if err != nil {
		return err
	}

	suite, err := models.LoadTestSuite(runSuitePath)
	if err != nil {
		return err
	}

	sessionPath := runSessionPath
	if sessionPath == "" {
		name := fmt.Sprintf("session-%s.json", time.Now().UTC().Format("20060102-150405"))
		sessionPath = filepath.Join(cfg.Paths.SessionsDir, name)
	}

	sess, err := session.NewSession(prompt, session.Options{Path: sessionPath, AutoSave: true})
	if err != nil {
		return err
	}

	fmt.Printf("Session: %s\n", sessionPath)
	return driveCycle(cfg, sess, suite.Cases)
}

// applyCycleFlags folds command-line overrides into the cycle policy.
func applyCycleFlags(cfg *config.Config) {
	if runTargetScore > 0 {
		cfg.Cycle.TargetScore = runTargetScore
	}
	if runMaxRounds > 0 {
		cfg.Cycle.MaxRounds = runMaxRounds
	}
	if runMaxCost > 0 {
		cfg.Cycle.MaxCost = runMaxCost
	}
	if runAuto {
		cfg.Cycle.AutoApprove = true
	}
	if runBedrock {
		cfg.Bedrock.Enabled = true
	}
}

// loadPromptFile reads a prompt JSON file.
func loadPromptFile(path string) (models.AgentPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.AgentPrompt{}, fmt.Errorf("read prompt file: %w", err)
	}

	var sp models.SerializedPrompt
	if err := json.Unmarshal(data, &sp); err != nil {
		return models.AgentPrompt{}, fmt.Errorf("parse prompt file: %w", err)
	}
	if sp.Version == "" {
		sp.Version = "1.0.0"
	}
	return session.DeserializePrompt(sp)
}

// driveCycle wires the collaborators, runs the cycle to completion and
// records the run in the index. Shared by run and resume.
func driveCycle(cfg *config.Config, sess *session.Session, cases []models.TestCase) error {
	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	judge := api.NewLLMJudge(client, anthropic.Model(cfg.Models.Judge))
	runner, err := api.NewEvalRunner(judge)
	if err != nil {
		return err
	}

	signals, err := api.NewSignalManager(cfg.Paths.SignalsDir)
	if err != nil {
		return fmt.Errorf("signal manager: %w", err)
	}
	defer signals.Close()
	signals.ClearSignals()

	conds, err := cfg.Cycle.Conditions()
	if err != nil {
		return err
	}

	pricing, err := buildPricing(cfg)
	if err != nil {
		return err
	}

	c, err := cycle.New(cycle.Config{
		Suite:         cases,
		Factory:       api.NewAgentBuilder(client, anthropic.Model(cfg.Models.Agent)),
		Runner:        runner,
		Improver:      api.NewLLMImprover(client, anthropic.Model(cfg.Models.Improver)),
		Pricing:       pricing,
		TerminateWhen: conds,
		VersionBump:   models.BumpKind(cfg.Cycle.VersionBump),
		Session:       sess,
		Stop:          signals,
	})
	if err != nil {
		return err
	}

	index := openRunIndex(cfg)
	if index != nil {
		defer index.Close()
		recordRunStart(index, sess)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *cycle.Result
	if cfg.Cycle.AutoApprove {
		result, err = cycle.RunAuto(ctx, c)
	} else {
		result, err = runInteractive(ctx, c, sess)
	}

	if index != nil {
		recordRunFinish(index, sess, err)
	}
	if err != nil {
		return err
	}

	printResult(result)
	if runWritePrompt != "" {
		if err := writePromptFile(runWritePrompt, result.FinalPrompt); err != nil {
			return err
		}
		fmt.Printf("Improved prompt written to %s\n", runWritePrompt)
	}
	return nil
}

// runInteractive drives the cycle with a review screen between rounds.
func runInteractive(ctx context.Context, c *cycle.Cycle, sess *session.Session) (*cycle.Result, error) {
	yield, err := c.Start(ctx)
	if err != nil {
		return nil, err
	}

	for {
		decision, err := tui.RunReview(yield, sess.Rounds())
		if err != nil {
			return nil, err
		}

		next, result, err := c.Advance(ctx, decision)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		yield = next
	}
}

func buildClient(cfg *config.Config) (*api.Client, error) {
	if cfg.Bedrock.Enabled {
		return api.NewClient(api.ClientConfig{
			UseAWSBedrock: true,
			AWSRegion:     cfg.Bedrock.Region,
		})
	}

	key, err := config.GetAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	return api.NewClient(api.ClientConfig{APIKey: key})
}

// buildPricing composes a pricing table from the per-role model rates,
// or loads one from the --pricing file. Roles with unknown models are
// charged at zero.
func buildPricing(cfg *config.Config) (*cost.Pricing, error) {
	if runPricingPath != "" {
		return cost.Load(runPricingPath)
	}
	return &cost.Pricing{
		Agent:    cost.DefaultModelPricing[cfg.Models.Agent],
		Judge:    cost.DefaultModelPricing[cfg.Models.Judge],
		Improver: cost.DefaultModelPricing[cfg.Models.Improver],
	}, nil
}

// openRunIndex opens the run index, logging rather than failing when it
// is unavailable. The session file alone is enough to resume a run.
func openRunIndex(cfg *config.Config) *state.DB {
	db, err := state.Open(cfg.Paths.RunIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run index unavailable: %v\n", err)
		return nil
	}
	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: run index migration failed: %v\n", err)
		db.Close()
		return nil
	}
	return db
}

func recordRunStart(db *state.DB, sess *session.Session) {
	h := sess.History()
	run := &state.Run{
		ID:          h.SessionID,
		HistoryPath: sess.Path(),
		PromptID:    h.CurrentPrompt.ID,
		Status:      state.RunActive,
		Rounds:      sess.Rounds(),
		StartedAt:   h.StartedAt,
	}
	if existing, _ := db.GetRun(h.SessionID); existing != nil {
		if err := db.UpdateRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: run index update failed: %v\n", err)
		}
		return
	}
	if err := db.CreateRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: run index insert failed: %v\n", err)
	}
}

func recordRunFinish(db *state.DB, sess *session.Session, runErr error) {
	h := sess.History()

	status := state.RunCompleted
	if runErr != nil {
		status = state.RunErrored
	}

	var best float64
	for _, r := range h.Rounds {
		if r.AvgScore > best {
			best = r.AvgScore
		}
	}

	run := &state.Run{
		ID:                h.SessionID,
		HistoryPath:       sess.Path(),
		PromptID:          h.CurrentPrompt.ID,
		Status:            status,
		Rounds:            sess.Rounds(),
		BestScore:         best,
		TotalCost:         h.TotalCost,
		TerminationReason: h.TerminationReason,
		StartedAt:         h.StartedAt,
		CompletedAt:       h.CompletedAt,
	}
	if err := db.UpdateRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: run index update failed: %v\n", err)
	}
}

func printResult(r *cycle.Result) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	bold.Println("Improvement cycle complete")
	fmt.Printf("  Rounds:  %d\n", r.TotalRounds)
	fmt.Printf("  Score:   %.1f -> ", r.FirstScore)
	if r.FinalScore >= r.FirstScore {
		green.Printf("%.1f\n", r.FinalScore)
	} else {
		yellow.Printf("%.1f\n", r.FinalScore)
	}
	fmt.Printf("  Cost:    $%.4f\n", r.TotalCost)
	fmt.Printf("  Version: %s\n", r.FinalPrompt.Version)
	fmt.Printf("  Reason:  %s\n", r.TerminationReason)
}

func writePromptFile(path string, prompt models.AgentPrompt) error {
	sp, err := session.SerializePrompt(prompt)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
