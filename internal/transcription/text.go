package transcription

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bracketed   = regexp.MustCompile(`\[[^\]]*\]`)
	parenthetic = regexp.MustCompile(`\([^)]*\)`)
	whitespace  = regexp.MustCompile(`\s+`)
	fillers     = regexp.MustCompile(`(?i)\b(um|uh|er|ah|hmm|you know|like)\b`)
)

var uncertaintyMarkers = []string{"[inaudible]", "[unclear]", "(inaudible)", "(unclear)", "[?]", "???", "[crosstalk]"}

// CleanText strips annotations like [Music] or (laughs), collapses
// whitespace and capitalizes sentence starts.
func CleanText(s string) string {
	s = bracketed.ReplaceAllString(s, " ")
	s = parenthetic.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return capitalizeSentences(s)
}

func capitalizeSentences(s string) string {
	out := []rune(s)
	upper := true
	for i, r := range out {
		switch {
		case upper && unicode.IsLetter(r):
			out[i] = unicode.ToUpper(r)
			upper = false
		case r == '.' || r == '!' || r == '?':
			upper = true
		case upper && !unicode.IsSpace(r) && !unicode.IsPunct(r):
			// digits and symbols start a sentence without capitalization
			upper = false
		}
	}
	return string(out)
}

// Confidence scores a transcript heuristically in [0,1]. raw is the text
// before cleaning, used to spot uncertainty markers.
func Confidence(text, raw string) float64 {
	c := 0.7
	n := len([]rune(text))
	if n > 50 {
		c += 0.1
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		c += 0.1
	}
	if !fillers.MatchString(text) {
		c += 0.05
	}
	if n < 10 {
		c -= 0.2
	}
	lowerRaw := strings.ToLower(raw)
	for _, m := range uncertaintyMarkers {
		if strings.Contains(lowerRaw, m) {
			c -= 0.3
			break
		}
	}
	return clamp01(c)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
