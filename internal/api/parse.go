package api

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON pulls the first JSON value out of model output. It
// handles bare JSON, JSON inside a fenced code block, and JSON with
// surrounding prose.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)

	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON found in model output")
	}

	candidate := text[start:]
	if end := matchingDelimiter(candidate); end > 0 {
		candidate = candidate[:end]
	}

	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return json.RawMessage(candidate), nil
}

// matchingDelimiter returns the index just past the delimiter closing
// the value that starts at position 0, skipping delimiters inside
// string literals. Returns 0 when unbalanced.
func matchingDelimiter(s string) int {
	open := s[0]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
