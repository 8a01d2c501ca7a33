package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/promptsmith/internal/config"
	"github.com/ShayCichocki/promptsmith/internal/state"
)

var (
	sessionsStatus string
	sessionsPurge  time.Duration
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past improvement runs",
	Long: `List runs recorded in the run index, newest first.

Each entry shows the run's status, rounds, best score, total cost and
the session file to pass to 'promptsmith resume'.`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status: active, completed or errored")
	sessionsCmd.Flags().DurationVar(&sessionsPurge, "purge-older-than", 0, "Delete runs older than this duration (e.g. 720h)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := state.Open(cfg.Paths.RunIndex)
	if err != nil {
		return fmt.Errorf("open run index: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate run index: %w", err)
	}

	if sessionsPurge > 0 {
		n, err := db.PurgeOldRuns(sessionsPurge)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d run(s).\n", n)
		return nil
	}

	var filter *state.RunStatus
	if sessionsStatus != "" {
		s := state.RunStatus(sessionsStatus)
		filter = &s
	}

	runs, err := db.ListRuns(filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Start one with 'promptsmith run'.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("%-10s %-12s %7s %7s %10s  %s\n", "STATUS", "PROMPT", "ROUNDS", "BEST", "COST", "SESSION")
	for _, r := range runs {
		statusColor(r.Status).Printf("%-10s", r.Status)
		fmt.Printf(" %-12s %7d %7.1f %10s  %s\n",
			r.PromptID, r.Rounds, r.BestScore, fmt.Sprintf("$%.4f", r.TotalCost), r.HistoryPath)
	}
	return nil
}

func statusColor(s state.RunStatus) *color.Color {
	switch s {
	case state.RunCompleted:
		return color.New(color.FgGreen)
	case state.RunErrored:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
