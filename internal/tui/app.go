package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/callwave/callwave/internal/browser"
	"github.com/callwave/callwave/internal/guard"
	"github.com/callwave/callwave/internal/realtime"
	"github.com/callwave/callwave/internal/session"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

type view int

const (
	viewLanding view = iota
	viewLogin
	viewDashboard
	viewCalls
	viewContacts
	viewWorkflows
	viewHistory
)

// Routes under the dashboard prefix are protected by the guard.
const (
	pathCalls     = guard.PathDashboard + "/calls"
	pathContacts  = guard.PathDashboard + "/contacts"
	pathWorkflows = guard.PathDashboard + "/workflows"
	pathHistory   = guard.PathDashboard + "/history"
)

var routes = map[string]view{
	guard.PathLanding:   viewLanding,
	guard.PathLogin:     viewLogin,
	guard.PathDashboard: viewDashboard,
	pathCalls:           viewCalls,
	pathContacts:        viewContacts,
	pathWorkflows:       viewWorkflows,
	pathHistory:         viewHistory,
}

// SessionExpiredMsg is sent by the program when the API client gives up on
// the session. The app drops back to the login form.
type SessionExpiredMsg struct{}

// navigateMsg asks the app to move to a route, subject to the guard.
type navigateMsg struct{ path string }

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

// toastMsg lets sub-models raise a notice without a request.
type toastMsg struct {
	kind toastKind
	text string
}

func notify(kind toastKind, text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{kind: kind, text: text} }
}

// meLoadedMsg carries the signed-in user.
type meLoadedMsg struct {
	user *domain.User
	err  error
}

func (m meLoadedMsg) failed() error { return m.err }

type loggedOutMsg struct{ err error }

func (m loggedOutMsg) failed() error { return m.err }

// Options wires the app to its collaborators.
type Options struct {
	Client   *client.Client
	Session  *session.Manager
	Realtime *realtime.Client
	Version  string
	// ReleasesURL is polled once at startup for a newer build. Empty disables the check.
	ReleasesURL string
	// Start is the first route shown; defaults to the dashboard.
	Start string
}

// App is the root Bubbletea model.
type App struct {
	client     *client.Client
	session    *session.Manager
	guard      *guard.Guard
	version    string
	releases   string
	view       view
	route      string
	landing    landingModel
	login      loginModel
	dashboard  dashboardModel
	calls      callsModel
	contacts   contactsModel
	workflows  workflowsModel
	history    historyModel
	toasts     toasts
	loading    int
	helpOpen   bool
	helpCursor int
	user       *domain.User
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates the TUI application and resolves the starting route.
func NewApp(opts Options) App {
	sess := opts.Session
	if sess == nil {
		sess = session.NewManager(session.NewMemoryStore())
	}
	start := opts.Start
	if start == "" {
		start = guard.PathDashboard
	}
	a := App{
		client:    opts.Client,
		session:   sess,
		guard:     guard.New(sess, guard.DefaultRules()),
		version:   opts.Version,
		releases:  opts.ReleasesURL,
		landing:   newLandingModel(),
		login:     newLoginModel(opts.Client),
		dashboard: newDashboardModel(opts.Client),
		calls:     newCallsModel(opts.Client, opts.Realtime),
		contacts:  newContactsModel(opts.Client),
		workflows: newWorkflowsModel(opts.Client),
		history:   newHistoryModel(opts.Client),
	}
	a.route, a.view = a.resolve(start)
	if u, err := sess.User(context.Background()); err == nil {
		a.user = u
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.enterCmd(), checkVersion(a.releases, a.version))
}

// Close tears down the live-call subscription. Safe to call more than once.
func (a App) Close() {
	a.calls.teardown()
}

func (a App) resolve(path string) (string, view) {
	target := a.guard.Resolve(context.Background(), path)
	v, ok := routes[target]
	if !ok {
		return guard.PathLanding, viewLanding
	}
	return target, v
}

func (a App) navigate(path string) (App, tea.Cmd) {
	a.route, a.view = a.resolve(path)
	a.helpOpen = false
	return a, a.enterCmd()
}

// enterCmd loads whatever the current view needs on arrival.
func (a App) enterCmd() tea.Cmd {
	var cmds []tea.Cmd
	if a.view >= viewDashboard && a.user == nil {
		cmds = append(cmds, a.loadMe())
	}
	switch a.view {
	case viewLogin:
		cmds = append(cmds, a.login.Init())
	case viewDashboard:
		cmds = append(cmds, a.dashboard.Init())
	case viewCalls:
		cmds = append(cmds, a.calls.Init())
	case viewContacts:
		cmds = append(cmds, a.contacts.Init())
	case viewWorkflows:
		cmds = append(cmds, a.workflows.Init())
	case viewHistory:
		cmds = append(cmds, a.history.Init())
	}
	return tea.Batch(cmds...)
}

func (a App) loadMe() tea.Cmd {
	c := a.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		u, err := c.Me(ctx)
		return meLoadedMsg{user: u, err: err}
	})
}

func (a App) logout() tea.Cmd {
	c := a.client
	if c == nil {
		return func() tea.Msg { return loggedOutMsg{} }
	}
	return fetch("Signed out", func(ctx context.Context) tea.Msg {
		return loggedOutMsg{err: c.Logout(ctx)}
	})
}

// expire resets signed-in state and shows the login form.
func (a App) expire() (App, tea.Cmd) {
	a.calls = a.calls.reset()
	a.contacts = a.contacts.reset()
	a.workflows = a.workflows.reset()
	a.user = nil
	a.session.Clear(context.Background()) //nolint:errcheck // client already cleared it
	toastCmd := a.toasts.push(toastError, client.Message(client.ErrSessionExpired))
	var cmd tea.Cmd
	a, cmd = a.navigate(guard.PathLogin)
	return a, tea.Batch(toastCmd, cmd)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + toast(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.landing, _ = a.landing.Update(bodyMsg)
		a.login, _ = a.login.Update(bodyMsg)
		a.dashboard, _ = a.dashboard.Update(bodyMsg)
		a.calls, _ = a.calls.Update(bodyMsg)
		a.contacts, _ = a.contacts.Update(bodyMsg)
		a.workflows, _ = a.workflows.Update(bodyMsg)
		a.history, _ = a.history.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		a.login.frame = a.frame
		a.contacts.frame = a.frame
		a.workflows.frame = a.frame
		return a, shimmerTickCmd()

	case loadingMsg:
		a.loading += int(msg)
		if a.loading < 0 {
			a.loading = 0
		}
		return a, nil

	case fetchedMsg:
		if a.loading > 0 {
			a.loading--
		}
		var toastCmd tea.Cmd
		if r, ok := msg.msg.(result); ok && r.failed() != nil {
			if errors.Is(r.failed(), client.ErrSessionExpired) {
				// Let the owner settle its in-flight state before signing out.
				model, cmd := a.Update(msg.msg)
				a = model.(App)
				var expireCmd tea.Cmd
				a, expireCmd = a.expire()
				return a, tea.Batch(cmd, expireCmd)
			}
			toastCmd = a.toasts.push(toastError, client.Message(r.failed()))
		} else if msg.success != "" {
			toastCmd = a.toasts.push(toastSuccess, msg.success)
		}
		model, cmd := a.Update(msg.msg)
		return model, tea.Batch(toastCmd, cmd)

	case toastMsg:
		return a, a.toasts.push(msg.kind, msg.text)

	case updateAvailableMsg:
		return a, a.toasts.push(toastInfo, fmt.Sprintf("callwave %s is available (running %s)", msg.latest, a.version))

	case toastExpiredMsg:
		a.toasts.dismiss(msg.id)
		return a, nil

	case SessionExpiredMsg:
		return a.expire()

	case navigateMsg:
		return a.navigate(msg.path)

	case meLoadedMsg:
		if msg.err == nil && msg.user != nil {
			a.user = msg.user
		}
		return a, nil

	case loggedInMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		if msg.err != nil {
			return a, cmd
		}
		a.user = msg.user
		var navCmd tea.Cmd
		a, navCmd = a.navigate(guard.PathDashboard)
		return a, tea.Batch(cmd, navCmd)

	case loggedOutMsg:
		// The client clears the session even when the server call fails.
		a.calls = a.calls.reset()
		a.user = nil
		return a.navigate(guard.PathLanding)

	// Live-call traffic belongs to the calls model whatever view is showing.
	case callStartedMsg, callStoppedMsg, callEventMsg, socketClosedMsg, callOptionsLoadedMsg:
		var cmd tea.Cmd
		a.calls, cmd = a.calls.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		// Help overlay captures all keys when open
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				a.Close()
				return a, tea.Quit
			case "j", "down":
				if a.helpCursor < len(helpItems)-1 {
					a.helpCursor++
				}
			case "k", "up":
				if a.helpCursor > 0 {
					a.helpCursor--
				}
			case "enter":
				item := helpItems[a.helpCursor]
				if item.url != "" {
					browser.Open(item.url) //nolint:errcheck // best-effort browser open
				}
			}
			return a, nil
		}

		if msg.String() == "ctrl+c" {
			a.Close()
			return a, tea.Quit
		}

		// Global keys (only when not editing)
		if !a.isEditing() {
			switch msg.String() {
			case "h":
				a.helpOpen = true
				a.helpCursor = 0
				return a, nil
			case "q":
				a.Close()
				return a, tea.Quit
			}
			if a.view >= viewDashboard {
				switch msg.String() {
				case "1":
					return a.switchTo(guard.PathDashboard)
				case "2":
					return a.switchTo(pathCalls)
				case "3":
					return a.switchTo(pathContacts)
				case "4":
					return a.switchTo(pathWorkflows)
				case "5":
					return a.switchTo(pathHistory)
				case "L":
					return a, a.logout()
				}
			}
		}
	}

	return a.routeToView(msg)
}

func (a App) switchTo(path string) (tea.Model, tea.Cmd) {
	if a.route == path {
		return a, nil
	}
	return a.navigate(path)
}

// routeToView hands msg to the model owning the current view. Result messages
// reach their model even after the user has moved on.
func (a App) routeToView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.(type) {
	case overviewLoadedMsg:
		a.dashboard, cmd = a.dashboard.Update(msg)
		return a, cmd
	case groupsLoadedMsg, groupLoadedMsg, importParsedMsg, groupCreatedMsg:
		a.contacts, cmd = a.contacts.Update(msg)
		return a, cmd
	case workflowsLoadedMsg, workflowLoadedMsg, workflowSavedMsg, workflowDeletedMsg, docUploadedMsg, docDeletedMsg:
		a.workflows, cmd = a.workflows.Update(msg)
		return a, cmd
	case historyLoadedMsg:
		a.history, cmd = a.history.Update(msg)
		return a, cmd
	}

	switch a.view {
	case viewLanding:
		a.landing, cmd = a.landing.Update(msg)
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewCalls:
		a.calls, cmd = a.calls.Update(msg)
	case viewContacts:
		a.contacts, cmd = a.contacts.Update(msg)
	case viewWorkflows:
		a.workflows, cmd = a.workflows.Update(msg)
	case viewHistory:
		a.history, cmd = a.history.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	switch a.view {
	case viewLogin:
		return true
	case viewContacts:
		return a.contacts.editing()
	case viewWorkflows:
		return a.workflows.editing()
	}
	return false
}

func (a App) View() string {
	// Header: centered shimmer logo
	logo := renderShimmerLogo(a.frame)

	var parts []string
	if a.user != nil {
		parts = append(parts, a.user.DisplayName())
		if a.user.Plan != "" {
			parts = append(parts, a.user.Plan)
		}
		if a.user.Credits > 0 {
			parts = append(parts, fmt.Sprintf("%d credits", a.user.Credits))
		}
	}
	if a.calls.state.Active() {
		parts = append(parts, statusStyle(domain.StatusInProgress).Render(fmt.Sprintf("● live %d/%d", a.calls.state.CurrentIndex, a.calls.state.TotalCalls)))
	}
	if a.loading > 0 {
		parts = append(parts, accentStyle.Render(spinner(a.frame)+" loading"))
	}
	statsLine := metaStyle.Render(strings.Join(parts, " . "))

	header := center(logo, a.width) + "\n" + center(statsLine, a.width)

	// Tab bar only inside the dashboard.
	var tabBar string
	if a.view >= viewDashboard {
		tabBar = a.tabBar()
	}

	var body, help string
	switch a.view {
	case viewLanding:
		body = a.landing.View()
		help = helpBar("enter", "sign in", "h", "help", "q", "quit")
	case viewLogin:
		body = a.login.View()
		help = helpBar("tab", "next", "enter", "sign in", "esc", "back")
	case viewDashboard:
		body = a.dashboard.View(a.user, a.calls.state)
		help = helpBar("1-5", "tabs", "r", "refresh", "L", "sign out", "h", "help", "q", "quit")
	case viewCalls:
		body = a.calls.View()
		help = helpBar("1-5", "tabs") + "  " + a.calls.helpKeys()
	case viewContacts:
		body = a.contacts.View()
		help = helpBar("1-5", "tabs") + "  " + a.contacts.helpKeys()
	case viewWorkflows:
		body = a.workflows.View()
		help = helpBar("1-5", "tabs") + "  " + a.workflows.helpKeys()
	case viewHistory:
		body = a.history.View()
		help = helpBar("1-5", "tabs", "j/k", "nav", "n/p", "page", "r", "refresh", "q", "quit")
	}

	// Help overlay
	if a.helpOpen {
		body = helpView(a.helpCursor)
		help = helpBar("j/k", "nav", "enter", "open", "esc", "close")
	}

	// Chrome budget: header(2) + tabs(1) + toast(1) + help(1) = 5 lines + body
	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabBar, body, a.toasts.View(), help)
}

func (a App) tabBar() string {
	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Overview", viewDashboard},
		{"2", "Calls", viewCalls},
		{"3", "Contacts", viewContacts},
		{"4", "Workflows", viewWorkflows},
		{"5", "History", viewHistory},
	}

	colWidth := a.width / len(tabs)
	var b strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewCalls && a.calls.state.Active() {
			label += " " + successStyle.Render("●")
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		b.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}
	return b.String()
}

// center pads s so it sits in the middle of width columns.
func center(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinner(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}
