package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/internal/realtime"
	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

// callOptionsLoadedMsg carries the groups and workflows a campaign can use.
type callOptionsLoadedMsg struct {
	groups    []domain.ContactGroup
	workflows []domain.Workflow
	err       error
}

func (m callOptionsLoadedMsg) failed() error { return m.err }

type callStartedMsg struct {
	session *domain.CallSession
	err     error
}

func (m callStartedMsg) failed() error { return m.err }

type callStoppedMsg struct {
	sessionID int64
	err       error
}

func (m callStoppedMsg) failed() error { return m.err }

// callEventMsg is one socket event for subscription sub.
type callEventMsg struct {
	sub int
	ev  callsession.Event
}

// socketClosedMsg reports that subscription sub's channel closed.
type socketClosedMsg struct{ sub int }

const (
	pickGroup = iota
	pickWorkflow
)

// callsModel starts and stops campaigns and mirrors the running one.
// It owns the socket subscription, which lives only while a session is
// in progress.
type callsModel struct {
	client         *client.Client
	rt             *realtime.Client
	groups         []domain.ContactGroup
	workflows      []domain.Workflow
	groupIdx       int
	flowIdx        int
	pick           int
	errs           validate.Errors
	loading        bool
	busy           bool // start or stop in flight
	state          callsession.State
	sub            int
	events         <-chan callsession.Event
	cancel         context.CancelFunc
	last           string // outcome line for the most recent session
	writeClipboard func(string) error
	width          int
	height         int
}

func newCallsModel(c *client.Client, rt *realtime.Client) callsModel {
	return callsModel{client: c, rt: rt, loading: true, writeClipboard: clipboard.WriteAll}
}

func (m callsModel) Init() tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		var out callOptionsLoadedMsg
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			out.groups, err = c.ListContactGroups(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			out.workflows, err = c.ListWorkflows(ctx)
			return err
		})
		out.err = g.Wait()
		return out
	})
}

// teardown cancels the socket subscription if one is open.
func (m callsModel) teardown() callsModel {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.events = nil
	return m
}

// reset drops the mirrored session, used on sign-out and expiry.
func (m callsModel) reset() callsModel {
	m = m.teardown()
	m.state = callsession.State{}
	m.busy = false
	m.last = ""
	return m
}

func (m callsModel) subscribe() (callsModel, tea.Cmd) {
	m = m.teardown()
	if m.rt == nil || !m.state.Active() {
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.sub++
	m.cancel = cancel
	m.events = m.rt.Subscribe(ctx, m.state.SessionID)
	return m, waitForEvent(m.events, m.sub)
}

func waitForEvent(ch <-chan callsession.Event, sub int) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return socketClosedMsg{sub: sub}
		}
		return callEventMsg{sub: sub, ev: ev}
	}
}

func (m callsModel) Update(msg tea.Msg) (callsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case callOptionsLoadedMsg:
		m.loading = false
		if msg.err == nil {
			m.groups = msg.groups
			m.workflows = msg.workflows
			m.groupIdx = clampCursor(m.groupIdx, len(m.groups))
			m.flowIdx = clampCursor(m.flowIdx, len(m.workflows))
		}

	case callStartedMsg:
		m.busy = false
		if msg.err != nil || msg.session == nil {
			return m, nil
		}
		m.last = ""
		m.state = callsession.Reduce(m.state, callsession.Started{
			SessionID:  msg.session.SessionID,
			TotalCalls: msg.session.TotalCalls,
		})
		return m.subscribe()

	case callStoppedMsg:
		m.busy = false
		if msg.err != nil || msg.sessionID != m.state.SessionID {
			return m, nil
		}
		m.state = callsession.Reduce(m.state, callsession.Stopped{})
		m.last = fmt.Sprintf("Session #%d %s", msg.sessionID, domain.StatusStopped)
		return m.teardown(), nil

	case callEventMsg:
		if msg.sub != m.sub || m.events == nil {
			return m, nil
		}
		prev := m.state
		m.state = callsession.Reduce(m.state, msg.ev)
		if prev.Active() && !m.state.Active() {
			m.last = fmt.Sprintf("Session #%d %s", prev.SessionID, finalStatus(msg.ev))
			return m.teardown(), notify(toastSuccess, "Call session finished")
		}
		return m, waitForEvent(m.events, m.sub)

	case socketClosedMsg:
		if msg.sub != m.sub || m.events == nil {
			return m, nil
		}
		m = m.teardown()
		if m.state.Active() {
			return m, notify(toastError, "Lost live updates. Press r to reconnect.")
		}

	case tea.KeyMsg:
		if m.state.Active() {
			return m.updateActive(msg)
		}
		return m.updateIdle(msg)
	}
	return m, nil
}

// finalStatus names how a session ended, given the event that ended it.
func finalStatus(ev callsession.Event) string {
	if su, ok := ev.(callsession.StatusUpdated); ok && domain.Terminal(su.Update.Status) {
		return su.Update.Status
	}
	return domain.StatusCompleted
}

func (m callsModel) updateIdle(msg tea.KeyMsg) (callsModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "left", "right":
		m.pick = 1 - m.pick
	case "j", "down":
		if m.pick == pickGroup {
			m.groupIdx = clampCursor(m.groupIdx+1, len(m.groups))
		} else {
			m.flowIdx = clampCursor(m.flowIdx+1, len(m.workflows))
		}
	case "k", "up":
		if m.pick == pickGroup {
			m.groupIdx = clampCursor(m.groupIdx-1, len(m.groups))
		} else {
			m.flowIdx = clampCursor(m.flowIdx-1, len(m.workflows))
		}
	case "r":
		m.loading = true
		return m, m.Init()
	case "s", "enter":
		return m.start()
	}
	return m, nil
}

func (m callsModel) updateActive(msg tea.KeyMsg) (callsModel, tea.Cmd) {
	switch msg.String() {
	case "x":
		if m.busy {
			return m, nil
		}
		m.busy = true
		c, id := m.client, m.state.SessionID
		return m, fetch("Call session stopped", func(ctx context.Context) tea.Msg {
			return callStoppedMsg{sessionID: id, err: c.StopCallSession(ctx, id)}
		})
	case "c":
		id := strconv.FormatInt(m.state.SessionID, 10)
		copyFn := m.writeClipboard
		return m, func() tea.Msg {
			if err := copyFn(id); err != nil {
				return toastMsg{kind: toastError, text: "Copy failed: " + err.Error()}
			}
			return toastMsg{kind: toastSuccess, text: "Copied session id " + id}
		}
	case "r":
		if m.events == nil {
			return m.subscribe()
		}
	}
	return m, nil
}

func (m callsModel) request() client.StartCallSessionRequest {
	var req client.StartCallSessionRequest
	if m.groupIdx < len(m.groups) {
		req.ContactGroupID = m.groups[m.groupIdx].ID
	}
	if m.flowIdx < len(m.workflows) {
		req.WorkflowID = m.workflows[m.flowIdx].ID
	}
	return req
}

func (m callsModel) start() (callsModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	req := m.request()
	if err := validate.Struct(req); err != nil {
		m.errs = validate.Fields(err)
		return m, nil
	}
	m.errs = nil
	m.busy = true
	c := m.client
	return m, fetch("Call session started", func(ctx context.Context) tea.Msg {
		s, err := c.StartCallSession(ctx, req)
		return callStartedMsg{session: s, err: err}
	})
}

func (m callsModel) helpKeys() string {
	if m.state.Active() {
		return helpBar("x", "stop", "c", "copy id", "r", "reconnect", "h", "help", "q", "quit")
	}
	return helpBar("tab", "switch", "j/k", "nav", "s", "start", "r", "refresh", "h", "help", "q", "quit")
}

func (m callsModel) View() string {
	if m.state.Active() {
		return m.liveView()
	}

	var b strings.Builder
	b.WriteString("\n")
	if m.last != "" {
		b.WriteString("  " + dimStyle.Render(m.last) + "\n\n")
	}
	if m.loading {
		b.WriteString("  " + dimStyle.Render("Loading contact groups and workflows...") + "\n")
		return b.String()
	}

	header := func(label string, active bool) string {
		if active {
			return accentStyle.Render("▸ " + label)
		}
		return sectionHeaderStyle.Render("  " + label)
	}

	b.WriteString("  " + header("CONTACT GROUP", m.pick == pickGroup) + "\n")
	if len(m.groups) == 0 {
		b.WriteString("    " + dimStyle.Render("No contact groups. Import one from the Contacts tab.") + "\n")
	}
	for i, g := range m.groups {
		line := padRight(truncStr(g.Name, 30), 31) + metaStyle.Render(fmt.Sprintf("%d contacts", g.ContactCount))
		b.WriteString(pickRow(line, i == m.groupIdx, m.pick == pickGroup))
	}
	if msg := m.errs["contact_group_id"]; msg != "" {
		b.WriteString("    " + errorStyle.Render("contact group "+msg) + "\n")
	}

	b.WriteString("\n  " + header("WORKFLOW", m.pick == pickWorkflow) + "\n")
	if len(m.workflows) == 0 {
		b.WriteString("    " + dimStyle.Render("No workflows. Create one from the Workflows tab.") + "\n")
	}
	for i, w := range m.workflows {
		b.WriteString(pickRow(truncStr(w.Name, 40), i == m.flowIdx, m.pick == pickWorkflow))
	}
	if msg := m.errs["workflow_id"]; msg != "" {
		b.WriteString("    " + errorStyle.Render("workflow "+msg) + "\n")
	}

	b.WriteString("\n")
	if m.busy {
		b.WriteString("  " + accentStyle.Render("Starting...") + "\n")
	} else {
		b.WriteString("  " + inputPromptStyle.Render("> ") + dimStyle.Render("press s to start calling") + "\n")
	}
	return b.String()
}

func pickRow(text string, selected, focused bool) string {
	switch {
	case selected && focused:
		return "  " + accentStyle.Render("> ") + selectedStyle.Render(text) + "\n"
	case selected:
		return "  " + dimStyle.Render("• ") + normalStyle.Render(text) + "\n"
	default:
		return "    " + dimStyle.Render(text) + "\n"
	}
}

func (m callsModel) liveView() string {
	s := m.state
	var b strings.Builder

	fmt.Fprintf(&b, "\n  %s  %s\n", titleStyle.Render(fmt.Sprintf("Session #%d", s.SessionID)), statusStyle(s.Status).Render(s.Status))

	barWidth := max(min(m.width-20, 40), 10)
	fmt.Fprintf(&b, "  %s %s\n\n", progressBar(s.CurrentIndex, s.TotalCalls, barWidth), dimStyle.Render(fmt.Sprintf("%d/%d", s.CurrentIndex, s.TotalCalls)))

	if s.Current != nil {
		line := selectedStyle.Render(s.Current.Label()) + "  " + dimStyle.Render(s.Current.Phone)
		if s.Attempt > 1 {
			line += "  " + warnStyle.Render(fmt.Sprintf("attempt %d", s.Attempt))
		}
		b.WriteString("  " + sectionHeaderStyle.Render("NOW CALLING") + "\n  " + line + "\n\n")
	}

	if m.events == nil {
		b.WriteString("  " + warnStyle.Render("Not receiving live updates.") + "\n\n")
	}

	b.WriteString("  " + sectionHeaderStyle.Render("HISTORY") + "\n")
	if len(s.History) == 0 {
		b.WriteString("  " + dimStyle.Render("Waiting for the first call...") + "\n")
	}
	for _, e := range s.History {
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			normalStyle.Render(padRight(truncStr(e.Contact.Label(), 22), 23)),
			metaStyle.Render(padRight(e.Contact.Phone, 16)),
			statusStyle(e.Status).Render(padRight(e.Status, 10)),
			dimStyle.Render(formatDuration(e.Duration)))
	}
	return b.String()
}
