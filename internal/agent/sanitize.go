package agent

import (
	"regexp"
	"strings"
)

var (
	markupChars  = regexp.MustCompile("[*_`#]+")
	bracketChars = regexp.MustCompile(`[\[\](){}]`)
	newlineRuns  = regexp.MustCompile(`\n+`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// CleanVoiceText strips formatting artifacts from text destined for a speech
// synthesizer: emphasis markers, code delimiters, heading markers, brackets
// of all common kinds, and runs of whitespace. Newlines become single spaces.
// Idempotent.
func CleanVoiceText(text string) string {
	text = markupChars.ReplaceAllString(text, "")
	text = bracketChars.ReplaceAllString(text, "")
	text = newlineRuns.ReplaceAllString(text, " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
