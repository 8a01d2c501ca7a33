package cycle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// ApplyOutcome records which approved suggestions actually took effect.
type ApplyOutcome struct {
	// Applied are suggestions whose currentValue was found and replaced.
	Applied []models.Suggestion
	// Skipped are suggestions whose currentValue was not present in the
	// target field. Skips are recorded, never raised as errors.
	Skipped []models.Suggestion
}

// applySuggestions applies approved suggestions to the prompt in place.
// system_prompt and parameters edits replace the first occurrence of
// currentValue in the target field; user_prompt edits additionally
// recompile the template. A user_prompt edit against a prompt without a
// user template is fatal.
func applySuggestions(prompt *models.AgentPrompt, approved []models.Suggestion) (*ApplyOutcome, error) {
	outcome := &ApplyOutcome{}

	for _, s := range approved {
		switch s.Type {
		case models.SuggestionSystemPrompt:
			replaced, ok := replaceFirst(prompt.System, s.CurrentValue, s.SuggestedValue)
			if !ok {
				outcome.Skipped = append(outcome.Skipped, s)
				continue
			}
			prompt.System = replaced
			outcome.Applied = append(outcome.Applied, s)

		case models.SuggestionUserPrompt:
			if prompt.UserTemplate == "" {
				return nil, fmt.Errorf("%w: user_prompt suggestion against a prompt without a userTemplate", ErrSuggestionApply)
			}
			replaced, ok := replaceFirst(prompt.UserTemplate, s.CurrentValue, s.SuggestedValue)
			if !ok {
				outcome.Skipped = append(outcome.Skipped, s)
				continue
			}
			if err := models.ValidateTemplate(replaced); err != nil {
				return nil, fmt.Errorf("%w: recompile after user_prompt edit: %v", ErrSuggestionApply, err)
			}
			prompt.UserTemplate = replaced
			outcome.Applied = append(outcome.Applied, s)

		case models.SuggestionParameters:
			if !applyParameterEdit(prompt, s) {
				outcome.Skipped = append(outcome.Skipped, s)
				continue
			}
			outcome.Applied = append(outcome.Applied, s)

		default:
			outcome.Skipped = append(outcome.Skipped, s)
		}
	}
	return outcome, nil
}

// applyParameterEdit replaces the first occurrence of currentValue in
// the first string-valued custom field that contains it. Fields are
// visited in sorted key order so edits are deterministic.
func applyParameterEdit(prompt *models.AgentPrompt, s models.Suggestion) bool {
	keys := make([]string, 0, len(prompt.CustomFields))
	for k := range prompt.CustomFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		str, ok := prompt.CustomFields[k].(string)
		if !ok {
			continue
		}
		if replaced, found := replaceFirst(str, s.CurrentValue, s.SuggestedValue); found {
			prompt.CustomFields[k] = replaced
			return true
		}
	}
	return false
}

// replaceFirst replaces the first occurrence of old in text. It reports
// false when old is empty or absent.
func replaceFirst(text, old, new string) (string, bool) {
	if old == "" || !strings.Contains(text, old) {
		return text, false
	}
	return strings.Replace(text, old, new, 1), true
}
