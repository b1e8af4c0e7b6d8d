package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/callwave/callwave/pkg/domain"
)

// Shimmer animation for the CALLWAVE logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "C A L L W A V E" as a wave of light moving
// left to right, deep navy (#12304a) to bright cyan (#38d6f5).
func renderShimmerLogo(frame int) string {
	const text = "CALLWAVE"
	n := len(text)

	var out strings.Builder
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.12 - x*3.0
		phase += math.Sin(t*0.021) * 1.5

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)
		b = b*0.75 + math.Sin(t*0.035)*0.1 + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(18 + b*(56-18))
		g := clampByte(48 + b*(214-48))
		bl := clampByte(74 + b*(245-74))

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		out.WriteString(s.Render(string(text[i])))

		if i < n-1 {
			out.WriteString("  ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Accent / action styles
	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38d6f5"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38d6f5")).
			Bold(true)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f0b44a"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#38d6f5")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Selected row background
	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	progressFullStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#38d6f5"))

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#2a3040"))

	statusColors = map[string]lipgloss.Color{
		domain.StatusInProgress: lipgloss.Color("#38d6f5"),
		domain.StatusCalling:    lipgloss.Color("#38d6f5"),
		domain.StatusAccepted:   lipgloss.Color("#4ade80"),
		domain.StatusCompleted:  lipgloss.Color("#4ade80"),
		domain.StatusMissed:     lipgloss.Color("#f0b44a"),
		domain.StatusDeclined:   lipgloss.Color("#e06060"),
		domain.StatusFailed:     lipgloss.Color("#d05050"),
		domain.StatusStopped:    lipgloss.Color("#8890a0"),
	}
)

// statusStyle returns the color for a call status. Unknown statuses render dim.
func statusStyle(status string) lipgloss.Style {
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return dimStyle
}

// progressBar renders done/total as a fixed-width bar.
func progressBar(done, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return progressFullStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries given as key, label pairs.
func helpBar(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpEntry(pairs[i], pairs[i+1]))
	}
	return " " + strings.Join(parts, "  ")
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	desc  string
	url   string
}

var helpItems = []helpItem{
	{"Documentation", "callwave.io/docs", "https://callwave.io/docs"},
	{"Pricing", "callwave.io/pricing", "https://callwave.io/pricing"},
	{"Privacy Policy", "callwave.io/privacy", "https://callwave.io/privacy"},
	{"Support", "callwave.io/support", "https://callwave.io/support"},
}

// helpView renders the interactive help overlay with a cursor.
func helpView(cursor int) string {
	title := titleStyle.Render("C A L L W A V E")

	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("Bulk calling for teams that would rather not dial.")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#38d6f5"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n  %s\n\n", title, tagline)

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range Commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.Usage)), descStyle.Render(c.Desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Links (enter to open)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-26s", item.label))
		prefix := "    "
		if i == cursor {
			label = cursorStyle.Render(fmt.Sprintf("%-26s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(item.desc))
	}
	return b.String()
}

// Command documents a CLI subcommand. The same table feeds the help overlay
// and `callwave help`.
type Command struct {
	Usage string
	Desc  string
}

// Commands lists the CLI subcommands.
var Commands = []Command{
	{"callwave", "Open the dashboard"},
	{"callwave login", "Sign in with email and password"},
	{"callwave logout", "Sign out and clear the session"},
	{"callwave whoami", "Show the signed-in account"},
	{"callwave watch <session-id>", "Follow a running call session"},
	{"callwave import <file>", "Preview contacts in a .csv or .xlsx file"},
	{"callwave version", "Show version"},
}
