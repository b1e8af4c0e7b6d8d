package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

func typeLogin(m loginModel, s string) loginModel {
	for _, r := range s {
		m, _ = m.Update(keyMsg(string(r)))
	}
	return m
}

func TestLoginValidatesFieldByField(t *testing.T) {
	m := newLoginModel(nil)
	m = typeLogin(m, "not-an-email")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeLogin(m, "123")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no request for invalid input")
	}
	if m.errs["email"] != "must be a valid email address" {
		t.Errorf("email error = %q", m.errs["email"])
	}
	if m.errs["password"] != "must be at least 6 characters long" {
		t.Errorf("password error = %q", m.errs["password"])
	}
	if m.focus != loginEmail {
		t.Errorf("focus = %d, want the first invalid field", m.focus)
	}
	view := m.View()
	if !strings.Contains(view, "must be a valid email address") {
		t.Error("expected email error under the field")
	}
	if strings.Contains(view, "123") {
		t.Error("password rendered in clear text")
	}

	// Typing into a field clears its message.
	m = typeLogin(m, "x")
	if _, still := m.errs["email"]; still {
		t.Error("expected email error cleared after editing")
	}
}

func TestLoginEnterAdvancesThenSubmits(t *testing.T) {
	m := newLoginModel(nil)
	m = typeLogin(m, "demo@callwave.dev")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.focus != loginPassword {
		t.Fatal("enter on email should move to password")
	}
	m = typeLogin(m, "password")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.submitting {
		t.Fatal("expected sign-in request")
	}
	if !strings.Contains(m.View(), "signing in") {
		t.Error("expected progress in view")
	}

	m, _ = m.Update(loggedInMsg{user: &domain.User{ID: "u1"}})
	if m.submitting || m.fields[loginEmail].value != "" {
		t.Error("expected form reset after success")
	}
}

func TestLoginServerErrors(t *testing.T) {
	m := newLoginModel(nil)
	m.fields[loginEmail].value = "demo@callwave.dev"
	m.fields[loginPassword].value = "wrong-password"
	m.submitting = true

	apiErr := &client.APIError{StatusCode: 422, Message: "invalid", Errors: map[string]string{"email": "is not registered"}}
	m, _ = m.Update(loggedInMsg{err: errors.Join(errors.New("client.Login"), apiErr)})
	if m.submitting {
		t.Error("expected submitting cleared")
	}
	if m.fields[loginPassword].value != "" {
		t.Error("expected password cleared after failure")
	}
	if m.errs["email"] != "is not registered" {
		t.Errorf("errs = %v", m.errs)
	}
}

func TestLoginEscGoesBack(t *testing.T) {
	m := newLoginModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected navigate cmd")
	}
	if nav, ok := cmd().(navigateMsg); !ok || nav.path != "/" {
		t.Errorf("got %#v, want navigate to landing", nav)
	}
}
