package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
	}{
		{"plain ascii", strings.Repeat("a", 50), 20},
		{"styled", "\x1b[31m" + strings.Repeat("x", 50) + "\x1b[0m", 20},
		{"box drawing", strings.Repeat("─", 50), 20},
		{"styled box drawing", "\x1b[38;5;240m" + strings.Repeat("─", 50) + "\x1b[0m", 17},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.line, tc.width)
			if w := lipgloss.Width(got); w > tc.width {
				t.Errorf("truncate width = %d, want <= %d", w, tc.width)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestTruncateLeavesShortLines(t *testing.T) {
	line := "\x1b[31mok\x1b[0m"
	if got := truncate(line, 10); got != line {
		t.Errorf("truncate(%q, 10) = %q, want unchanged", line, got)
	}
}
