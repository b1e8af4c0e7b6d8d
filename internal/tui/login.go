package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/internal/guard"
	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

const (
	loginEmail = iota
	loginPassword
)

// loggedInMsg carries the result of a sign-in attempt.
type loggedInMsg struct {
	user *domain.User
	err  error
}

func (m loggedInMsg) failed() error { return m.err }

// loginModel is the sign-in form. Fields are validated before submitting and
// server-side field errors are shown under the matching input.
type loginModel struct {
	client     *client.Client
	fields     []field
	focus      int
	errs       validate.Errors
	submitting bool
	frame      int
	width      int
	height     int
}

func newLoginModel(c *client.Client) loginModel {
	return loginModel{
		client: c,
		fields: []field{
			{label: "Email", key: "email", placeholder: "you@company.com"},
			{label: "Password", key: "password", placeholder: "at least 6 characters", secret: true},
		},
	}
}

func (m loginModel) Init() tea.Cmd {
	return nil
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case loggedInMsg:
		m.submitting = false
		if msg.err == nil {
			fresh := newLoginModel(m.client)
			fresh.width, fresh.height = m.width, m.height
			return fresh, nil
		}
		m.fields[loginPassword].value = ""
		if f := apiFieldErrors(msg.err); f != nil {
			m.errs = f
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			return m, navigate(guard.PathLanding)
		case "tab", "down":
			m.focus = (m.focus + 1) % len(m.fields)
			return m, nil
		case "shift+tab", "up":
			m.focus = (m.focus + len(m.fields) - 1) % len(m.fields)
			return m, nil
		case "enter":
			if m.focus < len(m.fields)-1 {
				m.focus++
				return m, nil
			}
			return m.submit()
		default:
			f := &m.fields[m.focus]
			f.value = editRune(f.value, msg.String())
			delete(m.errs, f.key)
		}
	}
	return m, nil
}

func (m loginModel) request() client.LoginRequest {
	return client.LoginRequest{
		Email:    strings.TrimSpace(m.fields[loginEmail].value),
		Password: m.fields[loginPassword].value,
	}
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	req := m.request()
	if err := validate.Struct(req); err != nil {
		m.errs = validate.Fields(err)
		for i, f := range m.fields {
			if _, bad := m.errs[f.key]; bad {
				m.focus = i
				break
			}
		}
		return m, nil
	}
	m.errs = nil
	m.submitting = true
	c := m.client
	return m, fetch("Signed in", func(ctx context.Context) tea.Msg {
		u, err := c.Login(ctx, req)
		return loggedInMsg{user: u, err: err}
	})
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Sign in") + "\n\n")
	for i, f := range m.fields {
		b.WriteString(renderField(f, i == m.focus && !m.submitting, m.errs[f.key], m.frame))
	}
	b.WriteString("\n")
	if m.submitting {
		b.WriteString("  " + accentStyle.Render(spinner(m.frame)+" signing in...") + "\n")
	} else {
		b.WriteString("  " + dimStyle.Render("enter to sign in") + "\n")
	}
	return b.String()
}
