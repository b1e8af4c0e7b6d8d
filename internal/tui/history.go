package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

const historyPageSize = 15

type historyLoadedMsg struct {
	page *domain.CallHistoryPage
	err  error
}

func (m historyLoadedMsg) failed() error { return m.err }

// historyModel pages through persisted call records.
type historyModel struct {
	client  *client.Client
	page    int
	total   int
	records []domain.CallRecord
	cursor  int
	loading bool
	width   int
	height  int
}

func newHistoryModel(c *client.Client) historyModel {
	return historyModel{client: c, page: 1, loading: true}
}

func (m historyModel) Init() tea.Cmd {
	return m.loadPage(m.page)
}

func (m historyModel) loadPage(page int) tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		p, err := c.CallHistory(ctx, page, historyPageSize)
		return historyLoadedMsg{page: p, err: err}
	})
}

func (m historyModel) pages() int {
	if m.total <= 0 {
		return 1
	}
	return (m.total + historyPageSize - 1) / historyPageSize
}

func (m historyModel) Update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case historyLoadedMsg:
		m.loading = false
		if msg.err == nil && msg.page != nil {
			m.records = msg.page.Records
			m.total = msg.page.Total
			if msg.page.Page > 0 {
				m.page = msg.page.Page
			}
			m.cursor = clampCursor(m.cursor, len(m.records))
		}

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch msg.String() {
		case "j", "down":
			m.cursor = clampCursor(m.cursor+1, len(m.records))
		case "k", "up":
			m.cursor = clampCursor(m.cursor-1, len(m.records))
		case "n", "right":
			if m.page < m.pages() {
				m.loading = true
				m.cursor = 0
				return m, m.loadPage(m.page + 1)
			}
		case "p", "left":
			if m.page > 1 {
				m.loading = true
				m.cursor = 0
				return m, m.loadPage(m.page - 1)
			}
		case "r":
			m.loading = true
			return m, m.loadPage(m.page)
		}
	}
	return m, nil
}

func (m historyModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	if m.loading && len(m.records) == 0 {
		b.WriteString("  " + dimStyle.Render("Loading call history...") + "\n")
		return b.String()
	}
	if len(m.records) == 0 {
		b.WriteString("  " + dimStyle.Render("No calls yet.") + "\n")
		return b.String()
	}

	b.WriteString("  " + sectionHeaderStyle.Render(
		padRight("CONTACT", 22)+padRight("PHONE", 16)+padRight("STATUS", 11)+padRight("TRIES", 6)+padRight("TIME", 7)+"WHEN") + "\n")
	for i, r := range m.records {
		row := padRight(truncStr(r.ContactName, 20), 22) +
			padRight(r.Phone, 16) +
			statusStyle(r.Status).Render(padRight(r.Status, 11)) +
			padRight(fmt.Sprint(r.Attempts), 6) +
			padRight(formatDuration(r.Duration), 7) +
			formatTime(r.StartedAt)
		if i == m.cursor {
			b.WriteString("  " + accentStyle.Render("> ") + selectedStyle.Render(row) + "\n")
		} else {
			b.WriteString("    " + normalStyle.Render(row) + "\n")
		}
	}
	fmt.Fprintf(&b, "\n  %s\n", metaStyle.Render(fmt.Sprintf("page %d of %d . %d calls", m.page, m.pages(), m.total)))
	return b.String()
}
