package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/internal/guard"
)

type feature struct {
	title string
	desc  string
}

var landingFeatures = []feature{
	{"Bulk campaigns", "Dial a whole contact group with one keypress."},
	{"Voice workflows", "Greeting, keypad menu and reference documents per script."},
	{"Live mirror", "Watch every call's status and attempt as it happens."},
	{"Spreadsheet import", "Bring contacts in from .csv or .xlsx files."},
}

type plan struct {
	name  string
	price string
	calls string
}

var landingPlans = []plan{
	{"Starter", "$29/mo", "1,000 calls"},
	{"Growth", "$99/mo", "5,000 calls"},
	{"Scale", "talk to us", "unlimited"},
}

// landingModel is the public front page shown to signed-out users.
type landingModel struct {
	width  int
	height int
}

func newLandingModel() landingModel {
	return landingModel{}
}

func (m landingModel) Update(msg tea.Msg) (landingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "l":
			// The guard sends signed-in users straight on to the dashboard.
			return m, navigate(guard.PathLogin)
		case "d":
			return m, navigate(guard.PathDashboard)
		}
	}
	return m, nil
}

func (m landingModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Call every lead before lunch.") + "\n")
	b.WriteString("  " + dimStyle.Render("Upload a contact list, pick a workflow, press start.") + "\n\n")

	for _, f := range landingFeatures {
		fmt.Fprintf(&b, "  %s  %s\n", accentStyle.Render(padRight(f.title, 20)), normalStyle.Render(f.desc))
	}

	b.WriteString("\n  " + sectionHeaderStyle.Render("PRICING") + "\n")
	for _, p := range landingPlans {
		fmt.Fprintf(&b, "  %s %s %s\n",
			selectedStyle.Render(padRight(p.name, 10)),
			normalStyle.Render(padRight(p.price, 12)),
			metaStyle.Render(p.calls))
	}

	b.WriteString("\n  " + inputPromptStyle.Render("> ") + dimStyle.Render("press enter to sign in") + "\n")
	return b.String()
}
