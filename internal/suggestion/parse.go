package suggestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnusableResponse is returned when the model output contains no valid
// suggestion after fence stripping and validation.
var ErrUnusableResponse = errors.New("model response contained no valid suggestion")

// ParseModelResponse turns raw model text into validated drafts. Models
// routinely wrap JSON in markdown fences; those are stripped before
// decoding. Invalid entries are dropped, and at most maxSuggestions valid
// ones are kept. An empty result is an error so the caller can fall back.
func ParseModelResponse(raw string) ([]Draft, error) {
	text := stripFences(raw)

	var drafts []Draft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	valid := []Draft{}
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		d.Description = strings.TrimSpace(d.Description)
		if d.Valid() {
			valid = append(valid, d)
		}
	}
	if len(valid) == 0 {
		return nil, ErrUnusableResponse
	}
	if len(valid) > maxSuggestions {
		valid = valid[:maxSuggestions]
	}
	return valid, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
