// Package tui provides the terminal user interface for promptsmith's
// interactive review step.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/promptsmith/internal/cycle"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// inputMode tracks what the keyboard is currently driving.
type inputMode int

const (
	modeList inputMode = iota
	modeEdit
	modeRollback
)

// ReviewModel is the per-round review screen: it shows the round's
// evaluation summary and pending suggestions, and produces the decision
// that resumes the cycle.
type ReviewModel struct {
	yield       *cycle.RoundYield
	maxRollback int

	approved []bool
	edits    map[int]string
	cursor   int
	mode     inputMode
	input    textinput.Model

	decision cycle.Decision
	decided  bool
	width    int
	height   int

	styles styles
}

// NewReviewModel creates the review screen for one round yield.
// maxRollback is the number of persisted rounds available as rollback
// targets.
func NewReviewModel(yield *cycle.RoundYield, maxRollback int) *ReviewModel {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	return &ReviewModel{
		yield:       yield,
		maxRollback: maxRollback,
		approved:    make([]bool, len(yield.PendingSuggestions)),
		edits:       make(map[int]string),
		input:       ti,
		width:       80,
		height:      24,
		styles:      defaultStyles(),
	}
}

// Decision returns the decision the user made. Valid once the program
// has finished.
func (m *ReviewModel) Decision() cycle.Decision {
	return m.decision
}

// Decided reports whether the user made an explicit decision, as
// opposed to the program being interrupted.
func (m *ReviewModel) Decided() bool {
	return m.decided
}

// Init implements tea.Model.
func (m *ReviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeRollback:
			return m.updateRollback(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

// updateList handles keys on the suggestion list.
func (m *ReviewModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.yield.PendingSuggestions)

	switch msg.String() {
	case "ctrl+c", "q", "s":
		m.decision = cycle.Decision{Type: cycle.DecisionStop}
		m.decided = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}

	case " ":
		if n > 0 {
			m.approved[m.cursor] = !m.approved[m.cursor]
		}

	case "a":
		for i := range m.approved {
			m.approved[i] = true
		}

	case "x":
		for i := range m.approved {
			m.approved[i] = false
		}

	case "e":
		if n > 0 {
			m.mode = modeEdit
			m.input.SetValue(m.suggestedValue(m.cursor))
			return m, m.input.Focus()
		}

	case "r":
		if m.maxRollback > 0 {
			m.mode = modeRollback
			m.input.SetValue("")
			m.input.Placeholder = fmt.Sprintf("round number (1-%d)", m.maxRollback)
			return m, m.input.Focus()
		}

	case "c", "enter":
		m.decision = cycle.Decision{
			Type:                cycle.DecisionContinue,
			ApprovedSuggestions: m.approvedSuggestions(),
		}
		m.decided = true
		return m, tea.Quit
	}

	return m, nil
}

// updateEdit handles keys while editing a suggested value.
func (m *ReviewModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.input.Blur()
		return m, nil

	case "enter":
		m.edits[m.cursor] = m.input.Value()
		m.approved[m.cursor] = true
		m.mode = modeList
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateRollback handles keys while choosing a rollback target.
func (m *ReviewModel) updateRollback(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.input.Blur()
		return m, nil

	case "enter":
		round, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || round < 1 || round > m.maxRollback {
			// Keep the prompt open until the input is usable.
			m.input.SetValue("")
			return m, nil
		}
		m.decision = cycle.Decision{Type: cycle.DecisionRollback, RollbackToRound: round}
		m.decided = true
		m.input.Blur()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// suggestedValue returns the (possibly edited) replacement text for a
// suggestion.
func (m *ReviewModel) suggestedValue(i int) string {
	if v, ok := m.edits[i]; ok {
		return v
	}
	return m.yield.PendingSuggestions[i].SuggestedValue
}

// approvedSuggestions builds the approved slice, carrying user edits.
func (m *ReviewModel) approvedSuggestions() []models.Suggestion {
	var out []models.Suggestion
	for i, s := range m.yield.PendingSuggestions {
		if !m.approved[i] {
			continue
		}
		s.Approved = true
		if v, ok := m.edits[i]; ok && v != s.SuggestedValue {
			s.SuggestedValue = v
			s.Modified = true
		}
		out = append(out, s)
	}
	return out
}

// View implements tea.Model.
func (m *ReviewModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.title.Render(fmt.Sprintf(" Round %d Review ", m.yield.Result.Round)))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderSummary())
	sb.WriteString("\n")

	if m.yield.Termination.Terminate {
		sb.WriteString(m.styles.warn.Render("Termination condition met: " + m.yield.Termination.Reason))
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.renderSuggestions())
	sb.WriteString("\n")

	switch m.mode {
	case modeEdit:
		sb.WriteString(m.styles.header.Render("Edit suggested value") + " (enter to save, esc to cancel)\n")
		sb.WriteString(m.input.View())
	case modeRollback:
		sb.WriteString(m.styles.header.Render("Rollback to round") + " (enter to confirm, esc to cancel)\n")
		sb.WriteString(m.input.View())
	default:
		sb.WriteString(m.styles.hint.Render(m.helpLine()))
	}

	return sb.String()
}

func (m *ReviewModel) renderSummary() string {
	r := m.yield.Result

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %.1f", m.styles.header.Render("Score:"), r.AvgScore)
	if r.ScoreDelta != nil {
		style := m.styles.good
		if *r.ScoreDelta < 0 {
			style = m.styles.bad
		}
		fmt.Fprintf(&sb, " (%s)", style.Render(fmt.Sprintf("%+.1f", *r.ScoreDelta)))
	}
	fmt.Fprintf(&sb, "   %s %d/%d", m.styles.header.Render("Passing:"), r.Passed, r.TotalTests)
	fmt.Fprintf(&sb, "   %s $%.4f", m.styles.header.Render("Round cost:"), r.Cost.Total)
	fmt.Fprintf(&sb, "   %s $%.4f\n", m.styles.header.Render("Total:"), m.yield.Context.TotalCost)
	return sb.String()
}

func (m *ReviewModel) renderSuggestions() string {
	if len(m.yield.PendingSuggestions) == 0 {
		return m.styles.hint.Render("No suggestions this round.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.header.Render("Suggestions:"))
	sb.WriteString("\n")

	for i, s := range m.yield.PendingSuggestions {
		cursor := "  "
		if i == m.cursor {
			cursor = m.styles.cursor.Render("> ")
		}
		check := "[ ]"
		if m.approved[i] {
			check = m.styles.good.Render("[x]")
		}
		edited := ""
		if _, ok := m.edits[i]; ok {
			edited = m.styles.warn.Render(" (edited)")
		}

		fmt.Fprintf(&sb, "%s%s %s %s%s\n", cursor, check,
			m.styles.kind.Render(string(s.Type)), s.Priority, edited)
		fmt.Fprintf(&sb, "      - %s\n", truncate(s.CurrentValue, m.width-10))
		fmt.Fprintf(&sb, "      + %s\n", truncate(m.suggestedValue(i), m.width-10))
		if s.Reasoning != "" && i == m.cursor {
			fmt.Fprintf(&sb, "      %s\n", m.styles.hint.Render(truncate(s.Reasoning, m.width-10)))
		}
	}
	return sb.String()
}

func (m *ReviewModel) helpLine() string {
	parts := []string{"j/k move", "space toggle", "a all", "x none", "e edit", "c continue", "s stop"}
	if m.maxRollback > 0 {
		parts = append(parts, "r rollback")
	}
	return strings.Join(parts, "  ")
}

// truncate shortens s to fit in width columns.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width < 10 {
		width = 10
	}
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// RunReview runs the review screen and returns the user's decision.
func RunReview(yield *cycle.RoundYield, maxRollback int) (cycle.Decision, error) {
	model := NewReviewModel(yield, maxRollback)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return cycle.Decision{}, fmt.Errorf("review ui: %w", err)
	}
	if !model.Decided() {
		return cycle.Decision{Type: cycle.DecisionStop}, nil
	}
	return model.Decision(), nil
}
