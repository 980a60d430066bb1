package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

// OutcomeKind tags what came back from the model.
type OutcomeKind int

const (
	Malformed OutcomeKind = iota
	Parsed
)

// Outcome is either a parsed payload or the raw text that failed to parse.
type Outcome struct {
	Kind  OutcomeKind
	Value *payload
	Raw   string
}

type payload struct {
	Title        flexString `json:"title"`
	Ingredients  flexList   `json:"ingredients"`
	Instructions flexList   `json:"instructions"`
	Steps        flexList   `json:"steps"`
	CookingTime  flexString `json:"cookingTime"`
	CookingTime2 flexString `json:"cooking_time"`
	Servings     flexString `json:"servings"`
	Difficulty   flexString `json:"difficulty"`
	Cuisine      flexString `json:"cuisine"`
	Tags         flexList   `json:"tags"`
	Confidence   *float64   `json:"confidence"`
}

// flexString accepts strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", s)
		}
		*f = flexString(n.String())
	}
	return nil
}

// flexList accepts an array of strings, numbers or ingredient-like objects,
// or a single newline separated string.
type flexList []string

func (f *flexList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = splitLines(v)
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := itemText(it); v != "" {
			out = append(out, v)
		}
	}
	*f = out
	return nil
}

func itemText(raw json.RawMessage) string {
	var s flexString
	if err := json.Unmarshal(raw, &s); err == nil {
		return string(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, k := range []string{"quantity", "amount", "unit", "name", "item", "ingredient", "text", "step", "instruction"} {
		switch v := obj[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		case float64:
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.Join(parts, " ")
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Parse finds the last top-level JSON object in raw that decodes into a
// recipe payload. Reasoning blocks and markdown fences are ignored.
func Parse(raw string) Outcome {
	s := thinkBlock.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```JSON", "```"} {
		s = strings.ReplaceAll(s, r, "")
	}

	blocks := topLevelObjects(s)
	var fallback *payload
	for i := len(blocks) - 1; i >= 0; i-- {
		var p payload
		if err := json.Unmarshal([]byte(blocks[i]), &p); err != nil {
			continue
		}
		if p.hasRecipeFields() {
			return Outcome{Kind: Parsed, Value: &p, Raw: raw}
		}
		if fallback == nil {
			fallback = &p
		}
	}
	if fallback != nil {
		return Outcome{Kind: Parsed, Value: fallback, Raw: raw}
	}
	return Outcome{Kind: Malformed, Raw: raw}
}

func (p *payload) hasRecipeFields() bool {
	return p.Title != "" || len(p.Ingredients) > 0 || len(p.Instructions) > 0 || len(p.Steps) > 0
}

// topLevelObjects returns every balanced {...} block that is not nested in
// another, skipping braces inside JSON strings.
func topLevelObjects(s string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, strings.TrimSpace(s[start:i+1]))
				start = -1
			}
		}
	}
	return out
}
