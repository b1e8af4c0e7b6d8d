package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

const recentCalls = 5

// overviewLoadedMsg carries the counts and recent calls for the overview.
type overviewLoadedMsg struct {
	groups    int
	contacts  int
	workflows int
	calls     int
	recent    []domain.CallRecord
	err       error
}

func (m overviewLoadedMsg) failed() error { return m.err }

// dashboardModel is the signed-in landing page.
type dashboardModel struct {
	client   *client.Client
	overview overviewLoadedMsg
	loaded   bool
	loading  bool
	width    int
	height   int
}

func newDashboardModel(c *client.Client) dashboardModel {
	return dashboardModel{client: c}
}

func (m dashboardModel) Init() tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		var out overviewLoadedMsg
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			groups, err := c.ListContactGroups(ctx)
			out.groups = len(groups)
			for _, cg := range groups {
				out.contacts += cg.ContactCount
			}
			return err
		})
		g.Go(func() error {
			wfs, err := c.ListWorkflows(ctx)
			out.workflows = len(wfs)
			return err
		})
		g.Go(func() error {
			page, err := c.CallHistory(ctx, 1, recentCalls)
			if page != nil {
				out.calls = page.Total
				out.recent = page.Records
			}
			return err
		})
		out.err = g.Wait()
		return out
	})
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case overviewLoadedMsg:
		m.loading = false
		if msg.err == nil {
			m.overview = msg
			m.loaded = true
		}
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m dashboardModel) View(user *domain.User, live callsession.State) string {
	var b strings.Builder

	greeting := "Welcome back"
	if name := user.DisplayName(); name != "" {
		greeting += ", " + name
	}
	b.WriteString("\n  " + titleStyle.Render(greeting) + "\n")
	if user != nil && user.Company != "" {
		b.WriteString("  " + dimStyle.Render(user.Company) + "\n")
	}
	b.WriteString("\n")

	if live.Active() {
		b.WriteString("  " + sectionHeaderStyle.Render("LIVE SESSION") + "\n")
		fmt.Fprintf(&b, "  #%d  %s  %s %s\n",
			live.SessionID,
			statusStyle(live.Status).Render(padRight(live.Status, 12)),
			progressBar(live.CurrentIndex, live.TotalCalls, 20),
			dimStyle.Render(fmt.Sprintf("%d/%d", live.CurrentIndex, live.TotalCalls)))
		b.WriteString("\n")
	}

	if !m.loaded {
		b.WriteString("  " + dimStyle.Render("Loading overview...") + "\n")
		return b.String()
	}

	o := m.overview
	b.WriteString("  " + sectionHeaderStyle.Render("OVERVIEW") + "\n")
	fmt.Fprintf(&b, "  %s %s\n", accentStyle.Render(padRight(fmt.Sprint(o.groups), 6)), normalStyle.Render(fmt.Sprintf("contact groups (%d contacts)", o.contacts)))
	fmt.Fprintf(&b, "  %s %s\n", accentStyle.Render(padRight(fmt.Sprint(o.workflows), 6)), normalStyle.Render("workflows"))
	fmt.Fprintf(&b, "  %s %s\n", accentStyle.Render(padRight(fmt.Sprint(o.calls), 6)), normalStyle.Render("calls placed"))

	b.WriteString("\n  " + sectionHeaderStyle.Render("RECENT CALLS") + "\n")
	if len(o.recent) == 0 {
		b.WriteString("  " + dimStyle.Render("No calls yet. Start a campaign from the Calls tab.") + "\n")
	}
	for _, r := range o.recent {
		fmt.Fprintf(&b, "  %s %s %s\n",
			normalStyle.Render(padRight(truncStr(r.ContactName, 22), 23)),
			statusStyle(r.Status).Render(padRight(r.Status, 10)),
			metaStyle.Render(formatTime(r.StartedAt)))
	}
	return b.String()
}
