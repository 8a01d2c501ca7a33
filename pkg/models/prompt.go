// Package models defines the shared domain types for promptsmith.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches {{name}} placeholders in a user template.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// AgentPrompt is a templated prompt for an agent under improvement.
type AgentPrompt struct {
	// ID is the stable identifier for this prompt.
	ID string `json:"id"`
	// Version is a semver string (x.y.z).
	Version string `json:"version"`
	// System is the system prompt text.
	System string `json:"system"`
	// UserTemplate is the user prompt template with {{name}} placeholders.
	UserTemplate string `json:"userTemplate"`
	// CustomFields carries extra prompt fields not modeled above.
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// Render substitutes {{name}} placeholders in the user template with
// values from input. Placeholders without a matching input value are
// left in place.
func (p *AgentPrompt) Render(input map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(p.UserTemplate, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := input[name]; ok {
			return v
		}
		return m
	})
}

// Placeholders returns the placeholder names referenced by the user template.
func (p *AgentPrompt) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(p.UserTemplate, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Clone returns a deep copy of the prompt.
func (p *AgentPrompt) Clone() AgentPrompt {
	out := *p
	if p.CustomFields != nil {
		out.CustomFields = make(map[string]any, len(p.CustomFields))
		for k, v := range p.CustomFields {
			out.CustomFields[k] = v
		}
	}
	return out
}

// ValidateTemplate checks that a user template is well formed. A template
// is rejected when it contains unbalanced {{ }} delimiters.
func ValidateTemplate(tpl string) error {
	open := strings.Count(tpl, "{{")
	closed := strings.Count(tpl, "}}")
	if open != closed {
		return fmt.Errorf("%w: unbalanced placeholder delimiters (%d open, %d close)", ErrTemplateCompile, open, closed)
	}
	return nil
}

// SemVer is a parsed x.y.z version.
type SemVer struct {
	Major int
	Minor int
	Patch int
}

// String returns the x.y.z form.
func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses an x.y.z semver string with non-negative components.
func ParseVersion(s string) (SemVer, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (len(part) > 1 && strings.HasPrefix(part, "0")) {
			return SemVer{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}
	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// BumpKind selects which semver component to increment.
type BumpKind string

const (
	// BumpMajor increments the major component and zeroes the rest.
	BumpMajor BumpKind = "major"
	// BumpMinor increments the minor component and zeroes patch.
	BumpMinor BumpKind = "minor"
	// BumpPatch increments only the patch component.
	BumpPatch BumpKind = "patch"
)

// Valid returns true if the bump kind is a known value.
func (k BumpKind) Valid() bool {
	switch k {
	case BumpMajor, BumpMinor, BumpPatch:
		return true
	default:
		return false
	}
}

// BumpVersion increments one component of an x.y.z version string.
func BumpVersion(version string, kind BumpKind) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", err
	}
	switch kind {
	case BumpMajor:
		v = SemVer{Major: v.Major + 1}
	case BumpMinor:
		v = SemVer{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		v.Patch++
	default:
		return "", fmt.Errorf("%w: unknown bump kind %q", ErrInvalidVersion, kind)
	}
	return v.String(), nil
}
