package tui

import (
	"strings"
	"testing"
	"time"
)

func TestEditRune(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append digit", "abc", "1", "abc1"},
		{"append space", "hello", " ", "hello "},
		{"space key name", "hello", "space", "hello "},
		{"backspace", "hello", "backspace", "hell"},
		{"backspace on empty", "", "backspace", ""},
		{"backspace multi-byte", "hellé", "backspace", "hell"},
		{"backspace emoji", "hello\U0001f600", "backspace", "hello"},
		{"enter ignored", "hello", "enter", "hello"},
		{"ctrl+s ignored", "hello", "ctrl+s", "hello"},
		{"shift+tab ignored", "hello", "shift+tab", "hello"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editRune(tc.start, tc.key); got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneClampsLength(t *testing.T) {
	full := strings.Repeat("x", maxInputLen)
	if got := editRune(full, "y"); got != full {
		t.Errorf("editRune past maxInputLen grew the input to %d runes", len([]rune(got)))
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hell…"},
		{"", 5, ""},
		{"ab", 1, "…"},
		{"你好世界", 3, "你好…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncStr(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateToHeight(t *testing.T) {
	s := "a\nb\nc\nd\n"
	if got := truncateToHeight(s, 2); got != "a\nb\n" {
		t.Errorf("truncateToHeight(2) = %q", got)
	}
	if got := truncateToHeight(s, 10); got != s {
		t.Errorf("truncateToHeight(10) = %q, want unchanged", got)
	}
	if got := truncateToHeight(s, 0); got != s {
		t.Errorf("truncateToHeight(0) = %q, want unchanged", got)
	}
}

func TestRenderFieldMasksSecrets(t *testing.T) {
	f := field{label: "Password", key: "password", value: "hunter22", secret: true}
	out := renderField(f, false, "", 0)
	if strings.Contains(out, "hunter22") {
		t.Error("secret field rendered its value")
	}
	if !strings.Contains(out, "••••••••") {
		t.Errorf("expected 8 mask runes in %q", out)
	}
}

func TestRenderFieldShowsErrorAndPlaceholder(t *testing.T) {
	f := field{label: "Email", key: "email", placeholder: "you@company.com"}
	out := renderField(f, false, "is required", 0)
	if !strings.Contains(out, "you@company.com") {
		t.Error("expected placeholder for empty unfocused field")
	}
	if !strings.Contains(out, "is required") {
		t.Error("expected validation message under the field")
	}
}

func TestFormatters(t *testing.T) {
	if got := formatDuration(75); got != "1:15" {
		t.Errorf("formatDuration(75) = %q", got)
	}
	if got := formatDuration(0); got != "-" {
		t.Errorf("formatDuration(0) = %q", got)
	}
	if got := formatSize(2048); got != "2.0 KB" {
		t.Errorf("formatSize(2048) = %q", got)
	}
	if got := formatSize(3 << 20); got != "3.0 MB" {
		t.Errorf("formatSize(3MB) = %q", got)
	}
	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("formatTime(zero) = %q", got)
	}
	if got := formatTime(time.Now().Add(-2 * time.Hour)); got != "2h ago" {
		t.Errorf("formatTime(-2h) = %q", got)
	}
}

func TestClampCursor(t *testing.T) {
	tests := []struct{ cursor, n, want int }{
		{0, 0, 0},
		{-1, 3, 0},
		{3, 3, 2},
		{1, 3, 1},
	}
	for _, tt := range tests {
		if got := clampCursor(tt.cursor, tt.n); got != tt.want {
			t.Errorf("clampCursor(%d, %d) = %d, want %d", tt.cursor, tt.n, got, tt.want)
		}
	}
}
