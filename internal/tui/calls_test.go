package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/pkg/domain"
)

func loadedCalls() callsModel {
	m := newCallsModel(nil, nil)
	m.width = 100
	m, _ = m.Update(callOptionsLoadedMsg{
		groups: []domain.ContactGroup{
			{ID: "g1", Name: "Spring leads", ContactCount: 4},
			{ID: "g2", Name: "Renewals", ContactCount: 2},
		},
		workflows: []domain.Workflow{
			{ID: "w1", Name: "Renewal reminder"},
		},
	})
	return m
}

// liveCalls returns a model mirroring session 7 with an open subscription.
func liveCalls(t *testing.T) (callsModel, *bool) {
	t.Helper()
	m := loadedCalls()
	m, _ = m.Update(callStartedMsg{session: &domain.CallSession{SessionID: 7, TotalCalls: 2}})
	if !m.state.Active() {
		t.Fatal("expected active state after start")
	}
	cancelled := false
	m.sub = 3
	m.cancel = func() { cancelled = true }
	m.events = make(chan callsession.Event)
	return m, &cancelled
}

func TestCallsStartRequiresSelections(t *testing.T) {
	m := newCallsModel(nil, nil)
	m, _ = m.Update(callOptionsLoadedMsg{})
	m, cmd := m.Update(keyMsg("s"))
	if cmd != nil {
		t.Error("expected no request when nothing is selected")
	}
	if m.errs["contact_group_id"] == "" || m.errs["workflow_id"] == "" {
		t.Errorf("expected field errors, got %v", m.errs)
	}
	if !strings.Contains(m.View(), "contact group is required") {
		t.Error("expected validation message in view")
	}
}

func TestCallsPickerNavigation(t *testing.T) {
	m := loadedCalls()
	m, _ = m.Update(keyMsg("j"))
	if m.groupIdx != 1 {
		t.Errorf("groupIdx = %d, want 1", m.groupIdx)
	}
	m, _ = m.Update(keyMsg("j"))
	if m.groupIdx != 1 {
		t.Errorf("groupIdx ran past the end: %d", m.groupIdx)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.pick != pickWorkflow {
		t.Error("tab should switch to the workflow list")
	}
	req := m.request()
	if req.ContactGroupID != "g2" || req.WorkflowID != "w1" {
		t.Errorf("request = %+v", req)
	}
}

func TestCallsStartSendsRequest(t *testing.T) {
	m := loadedCalls()
	m, cmd := m.Update(keyMsg("s"))
	if cmd == nil || !m.busy {
		t.Fatal("expected a start request")
	}
	// A second press while in flight is ignored.
	if _, cmd := m.Update(keyMsg("s")); cmd != nil {
		t.Error("expected no duplicate start")
	}
}

func TestCallsStartFailureStaysIdle(t *testing.T) {
	m := loadedCalls()
	m.busy = true
	m, _ = m.Update(callStartedMsg{err: errors.New("no credits")})
	if m.busy || m.state.Active() {
		t.Errorf("busy=%v active=%v, want idle", m.busy, m.state.Active())
	}
}

func TestCallsLiveEventsAndCompletion(t *testing.T) {
	m, cancelled := liveCalls(t)

	m, cmd := m.Update(callEventMsg{sub: 3, ev: callsession.StatusUpdated{Update: domain.CallStatusUpdate{
		SessionID: 7, Status: domain.StatusCalling, CurrentIndex: 0,
		CurrentContact: &domain.Contact{ID: "c1", Name: "Ada", Phone: "+15550101"}, Attempt: 2,
	}}})
	if cmd == nil {
		t.Error("expected to keep reading events")
	}
	m, _ = m.Update(callEventMsg{sub: 3, ev: callsession.HistoryUpdated{Update: domain.CallHistoryUpdate{
		SessionID: 7, Entry: domain.CallHistoryEntry{Contact: domain.Contact{ID: "c1", Name: "Ada", Phone: "+15550101"}, Status: domain.StatusAccepted, Duration: 42},
	}}})

	view := m.View()
	for _, want := range []string{"Session #7", "NOW CALLING", "Ada", "attempt 2", "accepted", "0:42"} {
		if !strings.Contains(view, want) {
			t.Errorf("live view missing %q", want)
		}
	}

	m, cmd = m.Update(callEventMsg{sub: 3, ev: callsession.StatusUpdated{Update: domain.CallStatusUpdate{
		SessionID: 7, Status: domain.StatusCompleted, CurrentIndex: 2,
	}}})
	if m.state.Active() {
		t.Fatal("expected idle after completion")
	}
	if !*cancelled || m.events != nil {
		t.Error("expected subscription torn down when the session went idle")
	}
	if cmd == nil {
		t.Fatal("expected a finished toast")
	}
	if tm, ok := cmd().(toastMsg); !ok || tm.text != "Call session finished" {
		t.Errorf("unexpected cmd result %#v", tm)
	}
	if !strings.Contains(m.View(), "Session #7 completed") {
		t.Error("expected outcome line in idle view")
	}
}

func TestCallsIgnoresStaleSubscription(t *testing.T) {
	m, _ := liveCalls(t)
	m, cmd := m.Update(callEventMsg{sub: 2, ev: callsession.StatusUpdated{Update: domain.CallStatusUpdate{
		SessionID: 7, Status: domain.StatusStopped,
	}}})
	if cmd != nil || !m.state.Active() {
		t.Error("events from an old subscription must be ignored")
	}
	m, _ = m.Update(socketClosedMsg{sub: 2})
	if m.events == nil {
		t.Error("close of an old subscription must not drop the current one")
	}
}

func TestCallsSocketClosedWhileActive(t *testing.T) {
	m, _ := liveCalls(t)
	m, cmd := m.Update(socketClosedMsg{sub: 3})
	if m.events != nil {
		t.Error("expected events cleared")
	}
	if cmd == nil {
		t.Fatal("expected a toast")
	}
	if tm := cmd().(toastMsg); tm.kind != toastError {
		t.Errorf("toast kind = %v, want error", tm.kind)
	}
	if !strings.Contains(m.View(), "Not receiving live updates") {
		t.Error("expected disconnected notice")
	}
}

func TestCallsStop(t *testing.T) {
	m, cancelled := liveCalls(t)
	m, cmd := m.Update(keyMsg("x"))
	if cmd == nil || !m.busy {
		t.Fatal("expected stop request")
	}
	m, _ = m.Update(callStoppedMsg{sessionID: 7})
	if m.state.Active() || !*cancelled {
		t.Error("expected idle and torn down after stop")
	}
	if !strings.Contains(m.View(), "Session #7 stopped") {
		t.Error("expected stopped outcome line")
	}
}

func TestCallsStopFailureKeepsMirror(t *testing.T) {
	m, cancelled := liveCalls(t)
	m.busy = true
	m, _ = m.Update(callStoppedMsg{sessionID: 7, err: errors.New("HTTP 500")})
	if !m.state.Active() || *cancelled {
		t.Error("a failed stop must leave the session mirrored")
	}
}

func TestCallsCopySessionID(t *testing.T) {
	m, _ := liveCalls(t)
	var copied string
	m.writeClipboard = func(s string) error { copied = s; return nil }
	_, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("expected copy cmd")
	}
	msg := cmd().(toastMsg)
	if copied != "7" || msg.kind != toastSuccess {
		t.Errorf("copied=%q toast=%+v", copied, msg)
	}

	m.writeClipboard = func(string) error { return errors.New("no clipboard") }
	_, cmd = m.Update(keyMsg("c"))
	if msg := cmd().(toastMsg); msg.kind != toastError {
		t.Error("expected error toast when the clipboard is unavailable")
	}
}
