package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/callwave/callwave/pkg/domain"
)

func TestStatusStyleRendersText(t *testing.T) {
	statuses := []string{
		domain.StatusCalling, domain.StatusAccepted, domain.StatusMissed,
		domain.StatusDeclined, domain.StatusFailed, domain.StatusCompleted,
		"something-new",
	}
	for _, s := range statuses {
		if got := statusStyle(s).Render(s); !strings.Contains(got, s) {
			t.Errorf("statusStyle(%q) dropped the text: %q", s, got)
		}
	}
}

func TestProgressBarWidth(t *testing.T) {
	tests := []struct {
		done, total, width int
	}{
		{0, 10, 20},
		{5, 10, 20},
		{10, 10, 20},
		{12, 10, 20},
		{3, 0, 20},
	}
	for _, tt := range tests {
		if got := lipgloss.Width(progressBar(tt.done, tt.total, tt.width)); got != tt.width {
			t.Errorf("progressBar(%d, %d, %d) width = %d", tt.done, tt.total, tt.width, got)
		}
	}
	if progressBar(1, 2, 0) != "" {
		t.Error("zero-width bar should be empty")
	}
}

func TestShimmerLogoSpellsName(t *testing.T) {
	out := renderShimmerLogo(7)
	for _, r := range "CALLWAVE" {
		if !strings.ContainsRune(out, r) {
			t.Errorf("logo missing %q", r)
		}
	}
}

func TestHelpViewListsCommandsAndCursor(t *testing.T) {
	out := helpView(1)
	for _, c := range Commands {
		if !strings.Contains(out, c.Desc) {
			t.Errorf("help view missing command %q", c.Usage)
		}
	}
	if !strings.Contains(out, "> ") {
		t.Error("expected a cursor marker in the links section")
	}
}
