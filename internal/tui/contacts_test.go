package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/internal/contacts"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

func loadedContacts() contactsModel {
	m := newContactsModel(nil)
	m.height = 30
	now := time.Now()
	m, _ = m.Update(groupsLoadedMsg{groups: []domain.ContactGroup{
		{ID: "g1", Name: "Renewals", ContactCount: 2, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "g2", Name: "Spring leads", ContactCount: 4, CreatedAt: now.Add(-time.Hour)},
	}})
	return m
}

func TestContactsListNewestFirst(t *testing.T) {
	m := loadedContacts()
	if m.loading {
		t.Error("expected loading cleared")
	}
	if m.groups[0].Name != "Spring leads" {
		t.Errorf("first group = %q, want newest", m.groups[0].Name)
	}
	view := m.View()
	if !strings.Contains(view, "Spring leads") || !strings.Contains(view, "Renewals") {
		t.Error("expected both groups in view")
	}
}

func TestContactsSearchFilters(t *testing.T) {
	m := loadedContacts()
	m, _ = m.Update(keyMsg("/"))
	if !m.editing() {
		t.Fatal("expected search to capture keys")
	}
	for _, r := range "renew" {
		m, _ = m.Update(keyMsg(string(r)))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := m.visible()
	if len(got) != 1 || got[0].ID != "g1" {
		t.Errorf("visible = %+v, want only Renewals", got)
	}
	if strings.Contains(m.View(), "Spring leads") {
		t.Error("filtered group still shown")
	}
}

func TestContactsDetailCopyPhone(t *testing.T) {
	m := loadedContacts()
	m, _ = m.Update(groupLoadedMsg{group: &domain.ContactGroup{
		ID: "g2", Name: "Spring leads",
		Contacts: []domain.Contact{
			{ID: "c1", Name: "Ada Lovelace", Phone: "+15550101"},
			{ID: "c2", Name: "Alan Turing", Phone: "+15550102"},
		},
	}})
	if m.mode != contactsDetail {
		t.Fatalf("mode = %d, want detail", m.mode)
	}
	if !strings.Contains(m.View(), "Alan Turing") {
		t.Error("expected contacts listed")
	}

	var copied string
	m.writeClipboard = func(s string) error { copied = s; return nil }
	m, _ = m.Update(keyMsg("j"))
	_, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("expected copy cmd")
	}
	if msg := cmd().(toastMsg); msg.kind != toastSuccess || copied != "+15550102" {
		t.Errorf("copied=%q toast=%+v", copied, msg)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != contactsList {
		t.Error("esc should return to the list")
	}
}

func TestContactsImportFlow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leads.csv")
	csv := "Name,Phone\nAda,+1 555 0101\nNobody,\nAlan,(555) 0102-99\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	m := loadedContacts()
	m, _ = m.Update(keyMsg("i"))
	if m.mode != contactsImportPath || !m.editing() {
		t.Fatal("expected import path mode")
	}
	m.path = path
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected parse cmd")
	}
	m, _ = m.Update(cmd())
	if m.mode != contactsImportPreview {
		t.Fatalf("mode = %d, want preview (pathErr=%q)", m.mode, m.pathErr)
	}
	if m.name != "leads" {
		t.Errorf("default group name = %q, want leads", m.name)
	}
	view := m.View()
	if !strings.Contains(view, "2 contacts found") || !strings.Contains(view, "1 rows skipped") {
		t.Errorf("preview missing counts:\n%s", view)
	}

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.saving {
		t.Fatal("expected create request")
	}
	m, _ = m.Update(groupCreatedMsg{group: &domain.ContactGroup{ID: "g3"}})
	if m.mode != contactsList || m.preview != nil {
		t.Error("expected back on the list after create")
	}
}

func TestContactsImportRejectsBadFile(t *testing.T) {
	m := loadedContacts()
	m, _ = m.Update(keyMsg("i"))
	m, _ = m.Update(importParsedMsg{err: contacts.ErrUnsupportedFormat})
	if m.mode != contactsImportPath || m.pathErr == "" {
		t.Error("expected error shown on the path input")
	}
	if !strings.Contains(m.View(), m.pathErr) {
		t.Error("expected error in view")
	}
}

func TestContactsImportValidatesGroup(t *testing.T) {
	m := loadedContacts()
	m.mode = contactsImportPreview
	m.preview = &contacts.Result{Contacts: []domain.Contact{
		{ID: "row-2", Name: "Ada", Phone: "+15550101"},
		{ID: "row-3", Name: "Bad", Phone: "12"},
	}}
	m.name = ""
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no request for invalid input")
	}
	if m.errs["name"] != "is required" {
		t.Errorf("name error = %q", m.errs["name"])
	}
	if m.errs["contacts.1.phone"] == "" {
		t.Errorf("expected row error, got %v", m.errs)
	}
	if !strings.Contains(m.View(), "1 contacts need fixing") {
		t.Error("expected row error summary")
	}
}

func TestContactsServerFieldErrors(t *testing.T) {
	m := loadedContacts()
	m.mode = contactsImportPreview
	m.preview = &contacts.Result{Contacts: []domain.Contact{{Phone: "+15550101"}}}
	m.saving = true
	apiErr := &client.APIError{StatusCode: 422, Message: "invalid", Errors: map[string]string{"name": "is already taken"}}
	m, _ = m.Update(groupCreatedMsg{err: errors.Join(errors.New("client.CreateContactGroup"), apiErr)})
	if m.saving || m.errs["name"] != "is already taken" {
		t.Errorf("saving=%v errs=%v", m.saving, m.errs)
	}
}

func TestRowErrors(t *testing.T) {
	got := rowErrors(map[string]string{
		"contacts.3.phone": "must be a phone number",
		"name":             "is required",
	})
	if len(got) != 1 || got[3] != "phone must be a phone number" {
		t.Errorf("rowErrors = %v", got)
	}
}
