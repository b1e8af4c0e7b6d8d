package tui

import (
	"strings"
	"testing"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/pkg/domain"
)

func TestDashboardOverview(t *testing.T) {
	m := newDashboardModel(nil)
	user := &domain.User{Name: "Ada", Company: "Acme"}
	if !strings.Contains(m.View(user, callsession.State{}), "Loading overview") {
		t.Error("expected loading state before data")
	}

	m, _ = m.Update(overviewLoadedMsg{
		groups: 2, contacts: 6, workflows: 3, calls: 12,
		recent: []domain.CallRecord{{ContactName: "Edsger Dijkstra", Status: domain.StatusMissed}},
	})
	view := m.View(user, callsession.State{})
	for _, want := range []string{"Welcome back, Ada", "Acme", "contact groups (6 contacts)", "workflows", "Edsger Dijkstra", "missed"} {
		if !strings.Contains(view, want) {
			t.Errorf("overview missing %q", want)
		}
	}
	if strings.Contains(view, "LIVE SESSION") {
		t.Error("no live section expected while idle")
	}

	live := callsession.Reduce(callsession.State{}, callsession.Started{SessionID: 11, TotalCalls: 4})
	if !strings.Contains(m.View(user, live), "#11") {
		t.Error("expected live session in overview")
	}
}
