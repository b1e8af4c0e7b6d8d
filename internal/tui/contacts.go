package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/callwave/callwave/internal/contacts"
	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

type contactsMode int

const (
	contactsList contactsMode = iota
	contactsDetail
	contactsImportPath
	contactsImportPreview
)

type groupsLoadedMsg struct {
	groups []domain.ContactGroup
	err    error
}

func (m groupsLoadedMsg) failed() error { return m.err }

type groupLoadedMsg struct {
	group *domain.ContactGroup
	err   error
}

func (m groupLoadedMsg) failed() error { return m.err }

type groupCreatedMsg struct {
	group *domain.ContactGroup
	err   error
}

func (m groupCreatedMsg) failed() error { return m.err }

// importParsedMsg carries a parsed spreadsheet. It does not go through fetch
// because no request is made.
type importParsedMsg struct {
	path   string
	result *contacts.Result
	err    error
}

// contactsModel lists contact groups, shows one group's contacts, and imports
// spreadsheets into new groups.
type contactsModel struct {
	client         *client.Client
	mode           contactsMode
	groups         []domain.ContactGroup
	cursor         int
	searching      bool
	query          string
	group          *domain.ContactGroup
	contactCursor  int
	path           string
	pathErr        string
	preview        *contacts.Result
	name           string
	errs           validate.Errors
	saving         bool
	loading        bool
	writeClipboard func(string) error
	frame          int
	width          int
	height         int
}

func newContactsModel(c *client.Client) contactsModel {
	return contactsModel{client: c, loading: true, writeClipboard: clipboard.WriteAll}
}

func (m contactsModel) Init() tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		groups, err := c.ListContactGroups(ctx)
		return groupsLoadedMsg{groups: groups, err: err}
	})
}

// reset drops any open import or search and returns to the group list.
func (m contactsModel) reset() contactsModel {
	m.mode = contactsList
	m.searching = false
	m.query = ""
	m.group = nil
	m.path = ""
	m.pathErr = ""
	m.preview = nil
	m.name = ""
	m.errs = nil
	m.saving = false
	return m
}

func (m contactsModel) editing() bool {
	return m.searching || m.mode == contactsImportPath || m.mode == contactsImportPreview
}

// visible returns the groups matching the search query.
func (m contactsModel) visible() []domain.ContactGroup {
	q := strings.ToLower(strings.TrimSpace(m.query))
	if q == "" {
		return m.groups
	}
	var out []domain.ContactGroup
	for _, g := range m.groups {
		if strings.Contains(strings.ToLower(g.Name), q) {
			out = append(out, g)
		}
	}
	return out
}

func (m contactsModel) Update(msg tea.Msg) (contactsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case groupsLoadedMsg:
		m.loading = false
		if msg.err == nil {
			m.groups = msg.groups
			sort.SliceStable(m.groups, func(i, j int) bool {
				return m.groups[i].CreatedAt.After(m.groups[j].CreatedAt)
			})
			m.cursor = clampCursor(m.cursor, len(m.visible()))
		}

	case groupLoadedMsg:
		if msg.err == nil && msg.group != nil {
			m.group = msg.group
			m.contactCursor = 0
			m.mode = contactsDetail
		}

	case importParsedMsg:
		if msg.err != nil {
			m.pathErr = msg.err.Error()
			return m, nil
		}
		m.pathErr = ""
		m.preview = msg.result
		m.name = strings.TrimSuffix(filepath.Base(msg.path), filepath.Ext(msg.path))
		m.errs = nil
		m.mode = contactsImportPreview

	case groupCreatedMsg:
		m.saving = false
		if msg.err != nil {
			if f := apiFieldErrors(msg.err); f != nil {
				m.errs = f
			}
			return m, nil
		}
		m.mode = contactsList
		m.preview = nil
		m.path = ""
		m.name = ""
		m.loading = true
		return m, m.Init()

	case tea.KeyMsg:
		switch m.mode {
		case contactsList:
			return m.updateList(msg)
		case contactsDetail:
			return m.updateDetail(msg)
		case contactsImportPath:
			return m.updateImportPath(msg)
		case contactsImportPreview:
			return m.updateImportPreview(msg)
		}
	}
	return m, nil
}

func (m contactsModel) updateList(msg tea.KeyMsg) (contactsModel, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.query = ""
		case "enter":
			m.searching = false
		default:
			m.query = editRune(m.query, msg.String())
		}
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil
	}

	groups := m.visible()
	switch msg.String() {
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(groups))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(groups))
	case "/":
		m.searching = true
	case "i":
		m.mode = contactsImportPath
		m.pathErr = ""
	case "r":
		m.loading = true
		return m, m.Init()
	case "enter":
		if m.cursor < len(groups) && m.client != nil {
			c, id := m.client, groups[m.cursor].ID
			return m, fetch("", func(ctx context.Context) tea.Msg {
				g, err := c.GetContactGroup(ctx, id)
				return groupLoadedMsg{group: g, err: err}
			})
		}
	}
	return m, nil
}

func (m contactsModel) updateDetail(msg tea.KeyMsg) (contactsModel, tea.Cmd) {
	n := 0
	if m.group != nil {
		n = len(m.group.Contacts)
	}
	switch msg.String() {
	case "esc":
		m.mode = contactsList
		m.group = nil
	case "j", "down":
		m.contactCursor = clampCursor(m.contactCursor+1, n)
	case "k", "up":
		m.contactCursor = clampCursor(m.contactCursor-1, n)
	case "c":
		if m.contactCursor < n {
			phone := m.group.Contacts[m.contactCursor].Phone
			write := m.writeClipboard
			return m, func() tea.Msg {
				if err := write(phone); err != nil {
					return toastMsg{kind: toastError, text: "Copy failed: " + err.Error()}
				}
				return toastMsg{kind: toastSuccess, text: "Copied " + phone}
			}
		}
	}
	return m, nil
}

func (m contactsModel) updateImportPath(msg tea.KeyMsg) (contactsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = contactsList
		m.path = ""
		m.pathErr = ""
	case "enter":
		path := expandHome(strings.TrimSpace(m.path))
		if path == "" {
			m.pathErr = "enter the path to a .csv or .xlsx file"
			return m, nil
		}
		return m, func() tea.Msg {
			res, err := contacts.ImportFile(path)
			return importParsedMsg{path: path, result: res, err: err}
		}
	default:
		m.path = editRune(m.path, msg.String())
	}
	return m, nil
}

func (m contactsModel) updateImportPreview(msg tea.KeyMsg) (contactsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = contactsImportPath
		m.preview = nil
		m.errs = nil
	case "enter", "ctrl+s":
		return m.save()
	default:
		m.name = editRune(m.name, msg.String())
		delete(m.errs, "name")
	}
	return m, nil
}

func (m contactsModel) save() (contactsModel, tea.Cmd) {
	if m.saving || m.preview == nil {
		return m, nil
	}
	req := client.CreateContactGroupRequest{
		Name:     strings.TrimSpace(m.name),
		Contacts: m.preview.Contacts,
	}
	if err := validate.Struct(req); err != nil {
		m.errs = validate.Fields(err)
		return m, nil
	}
	m.errs = nil
	m.saving = true
	c := m.client
	return m, fetch("Contact group created", func(ctx context.Context) tea.Msg {
		g, err := c.CreateContactGroup(ctx, req)
		return groupCreatedMsg{group: g, err: err}
	})
}

func (m contactsModel) helpKeys() string {
	switch m.mode {
	case contactsDetail:
		return helpBar("j/k", "nav", "c", "copy phone", "esc", "back")
	case contactsImportPath:
		return helpBar("enter", "read file", "esc", "cancel")
	case contactsImportPreview:
		return helpBar("enter", "create group", "esc", "back")
	}
	if m.searching {
		return helpBar("enter", "done", "esc", "clear")
	}
	return helpBar("j/k", "nav", "enter", "open", "/", "search", "i", "import", "r", "refresh", "q", "quit")
}

func (m contactsModel) View() string {
	switch m.mode {
	case contactsDetail:
		return m.detailView()
	case contactsImportPath:
		return m.importPathView()
	case contactsImportPreview:
		return m.previewView()
	}

	var b strings.Builder
	b.WriteString("\n")
	if m.searching || m.query != "" {
		b.WriteString("  " + inputPromptStyle.Render("/ ") + normalStyle.Render(m.query))
		if m.searching {
			b.WriteString(accentStyle.Render("█"))
		}
		b.WriteString("\n\n")
	}
	if m.loading && len(m.groups) == 0 {
		b.WriteString("  " + dimStyle.Render("Loading contact groups...") + "\n")
		return b.String()
	}

	groups := m.visible()
	if len(groups) == 0 {
		b.WriteString("  " + dimStyle.Render("No contact groups. Press i to import a spreadsheet.") + "\n")
		return b.String()
	}
	b.WriteString("  " + sectionHeaderStyle.Render(padRight("NAME", 32)+padRight("CONTACTS", 10)+"CREATED") + "\n")
	for i, g := range groups {
		row := padRight(truncStr(g.Name, 30), 32) + padRight(fmt.Sprint(g.ContactCount), 10) + formatTime(g.CreatedAt)
		if i == m.cursor {
			b.WriteString("  " + selectedRowBg.Render(selectedStyle.Render(row)) + "\n")
		} else {
			b.WriteString("  " + normalStyle.Render(row) + "\n")
		}
	}
	return b.String()
}

func (m contactsModel) detailView() string {
	var b strings.Builder
	if m.group == nil {
		return ""
	}
	fmt.Fprintf(&b, "\n  %s  %s\n\n", titleStyle.Render(m.group.Name), dimStyle.Render(fmt.Sprintf("%d contacts", len(m.group.Contacts))))

	// Keep the cursor on screen.
	rows := max(m.height-5, 1)
	start := 0
	if m.contactCursor >= rows {
		start = m.contactCursor - rows + 1
	}
	for i := start; i < len(m.group.Contacts) && i < start+rows; i++ {
		ct := m.group.Contacts[i]
		row := padRight(truncStr(ct.Label(), 24), 26) + padRight(ct.Phone, 18) + ct.Email
		if i == m.contactCursor {
			b.WriteString("  " + selectedRowBg.Render(selectedStyle.Render(row)) + "\n")
		} else {
			b.WriteString("  " + normalStyle.Render(row) + "\n")
		}
	}
	return b.String()
}

func (m contactsModel) importPathView() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Import contacts") + "\n")
	b.WriteString("  " + dimStyle.Render("Columns named name, phone and email are detected in the first row.") + "\n\n")
	f := field{label: "File", key: "file", value: m.path, placeholder: "~/leads.xlsx"}
	b.WriteString(renderField(f, true, m.pathErr, m.frame))
	return b.String()
}

func (m contactsModel) previewView() string {
	var b strings.Builder
	p := m.preview
	b.WriteString("\n  " + titleStyle.Render("Import contacts") + "\n")
	found := fmt.Sprintf("%d contacts found", len(p.Contacts))
	if p.Skipped > 0 {
		found += warnStyle.Render(fmt.Sprintf(", %d rows skipped without a phone number", p.Skipped))
	}
	b.WriteString("  " + dimStyle.Render(found) + "\n\n")

	f := field{label: "Group name", key: "name", value: m.name, placeholder: "Spring leads"}
	b.WriteString(renderField(f, !m.saving, m.errs["name"], m.frame))
	if msg := m.errs["contacts"]; msg != "" {
		b.WriteString("  " + errorStyle.Render("contacts "+msg) + "\n")
	}
	b.WriteString("\n")

	bad := rowErrors(m.errs)
	for i, ct := range p.Contacts {
		if i >= 8 {
			b.WriteString("  " + metaStyle.Render(fmt.Sprintf("... and %d more", len(p.Contacts)-i)) + "\n")
			break
		}
		row := padRight(truncStr(ct.Label(), 24), 26) + padRight(ct.Phone, 18)
		if msg, ok := bad[i]; ok {
			b.WriteString("  " + normalStyle.Render(row) + errorStyle.Render(msg) + "\n")
		} else {
			b.WriteString("  " + normalStyle.Render(row) + "\n")
		}
	}
	if len(bad) > 0 {
		b.WriteString("\n  " + errorStyle.Render(fmt.Sprintf("%d contacts need fixing in the file before import", len(bad))) + "\n")
	}
	return b.String()
}

// rowErrors groups "contacts.N.field" messages by row index.
func rowErrors(errs validate.Errors) map[int]string {
	out := map[int]string{}
	for k, v := range errs {
		var i int
		var f string
		if n, _ := fmt.Sscanf(strings.Replace(k, ".", " ", 2), "contacts %d %s", &i, &f); n == 2 {
			if _, seen := out[i]; !seen {
				out[i] = f + " " + v
			}
		}
	}
	return out
}
