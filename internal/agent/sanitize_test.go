package agent

import "testing"

func TestCleanVoiceText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"asterisks", "**urgent** help", "urgent help"},
		{"underscores", "stay __calm__", "stay calm"},
		{"backticks", "press `one` now", "press one now"},
		{"headings", "## Evacuation routes", "Evacuation routes"},
		{"square brackets", "go to [the shelter]", "go to the shelter"},
		{"parentheses", "call back (if needed)", "call back if needed"},
		{"braces", "location {unknown}", "location unknown"},
		{"newlines", "first line\n\nsecond line", "first line second line"},
		{"whitespace runs", "too    many   spaces", "too many spaces"},
		{"mixed", "**urgent**   help\n\nnow", "urgent help now"},
		{"leading and trailing", "  padded  ", "padded"},
		{"empty", "", ""},
		{"plain text untouched", "everyone is safely outside", "everyone is safely outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanVoiceText(tt.input)
			if got != tt.want {
				t.Errorf("CleanVoiceText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanVoiceText_Idempotent(t *testing.T) {
	inputs := []string{
		"**urgent**   help\n\nnow",
		"plain sentence",
		"## heading [with] (all) {kinds}",
		"already clean text",
		"",
	}

	for _, input := range inputs {
		once := CleanVoiceText(input)
		twice := CleanVoiceText(once)
		if once != twice {
			t.Errorf("CleanVoiceText not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}
