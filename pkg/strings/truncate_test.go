package strings

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "jdbc:postgresql://db.internal:5432/orders", 20, "jdbc:postgresql:/..."},
		{"multi-byte runes kept whole", "héllo wörld", 8, "héllo..."},
		{"tiny width clamped", "abcdefgh", 1, "a..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  -Xmx512m\n\t-Dfoo=bar  "); got != "-Xmx512m -Dfoo=bar" {
		t.Errorf("SingleLine() = %q", got)
	}
}

func TestTruncateCell(t *testing.T) {
	if got := TruncateCell("line one\nline two", 12); got != "line one ..." {
		t.Errorf("TruncateCell() = %q", got)
	}
}
