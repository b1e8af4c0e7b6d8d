package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

type workflowsMode int

const (
	workflowsList workflowsMode = iota
	workflowsDetail
	workflowsForm
	workflowsUpload
)

// Form field indexes.
const (
	wfName = iota
	wfDescription
	wfGreeting
	wfIVR
)

type workflowsLoadedMsg struct {
	workflows []domain.Workflow
	err       error
}

func (m workflowsLoadedMsg) failed() error { return m.err }

type workflowLoadedMsg struct {
	workflow *domain.Workflow
	docs     []domain.WorkflowDocument
	err      error
}

func (m workflowLoadedMsg) failed() error { return m.err }

type workflowSavedMsg struct {
	workflow *domain.Workflow
	err      error
}

func (m workflowSavedMsg) failed() error { return m.err }

type workflowDeletedMsg struct {
	id  string
	err error
}

func (m workflowDeletedMsg) failed() error { return m.err }

type docUploadedMsg struct {
	doc *domain.WorkflowDocument
	err error
}

func (m docUploadedMsg) failed() error { return m.err }

type docDeletedMsg struct {
	id  string
	err error
}

func (m docDeletedMsg) failed() error { return m.err }

var errIVRFormat = errors.New("use digit:label:action, separated by ;")

// workflowsModel manages call scripts and their reference documents.
type workflowsModel struct {
	client     *client.Client
	mode       workflowsMode
	workflows  []domain.Workflow
	cursor     int
	loading    bool
	confirming bool // delete confirmation pending for the selected row
	current    *domain.Workflow
	docs       []domain.WorkflowDocument
	docCursor  int
	editingID  string // empty when creating
	fields     []field
	focus      int
	errs       validate.Errors
	saving     bool
	path       string
	pathErr    string
	frame      int
	width      int
	height     int
}

func newWorkflowsModel(c *client.Client) workflowsModel {
	return workflowsModel{client: c, loading: true}
}

func (m workflowsModel) Init() tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		wfs, err := c.ListWorkflows(ctx)
		return workflowsLoadedMsg{workflows: wfs, err: err}
	})
}

func (m workflowsModel) reset() workflowsModel {
	m.mode = workflowsList
	m.confirming = false
	m.current = nil
	m.docs = nil
	m.editingID = ""
	m.fields = nil
	m.errs = nil
	m.saving = false
	m.path = ""
	m.pathErr = ""
	return m
}

func (m workflowsModel) editing() bool {
	return m.mode == workflowsForm || m.mode == workflowsUpload
}

func (m workflowsModel) load(id string) tea.Cmd {
	c := m.client
	if c == nil {
		return nil
	}
	return fetch("", func(ctx context.Context) tea.Msg {
		var out workflowLoadedMsg
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			out.workflow, err = c.GetWorkflow(ctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			out.docs, err = c.ListWorkflowDocuments(ctx, id)
			return err
		})
		out.err = g.Wait()
		return out
	})
}

func (m workflowsModel) Update(msg tea.Msg) (workflowsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case workflowsLoadedMsg:
		m.loading = false
		if msg.err == nil {
			m.workflows = msg.workflows
			m.cursor = clampCursor(m.cursor, len(m.workflows))
		}

	case workflowLoadedMsg:
		if msg.err == nil && msg.workflow != nil {
			m.current = msg.workflow
			m.docs = msg.docs
			m.docCursor = clampCursor(m.docCursor, len(m.docs))
			if m.mode == workflowsList {
				m.mode = workflowsDetail
			}
		}

	case workflowSavedMsg:
		m.saving = false
		if msg.err != nil {
			if f := apiFieldErrors(msg.err); f != nil {
				m.errs = formErrors(f)
			}
			return m, nil
		}
		m.mode = workflowsList
		m.loading = true
		cmds := []tea.Cmd{m.Init()}
		if m.current != nil && msg.workflow != nil && m.current.ID == msg.workflow.ID {
			m.mode = workflowsDetail
			cmds = append(cmds, m.load(msg.workflow.ID))
		}
		return m, tea.Batch(cmds...)

	case workflowDeletedMsg:
		if msg.err == nil {
			m.mode = workflowsList
			m.current = nil
			m.loading = true
			return m, m.Init()
		}

	case docUploadedMsg:
		if msg.err != nil {
			m.pathErr = client.Message(msg.err)
			return m, nil
		}
		m.mode = workflowsDetail
		m.path = ""
		m.pathErr = ""
		if m.current != nil {
			return m, m.load(m.current.ID)
		}

	case docDeletedMsg:
		if msg.err == nil && m.current != nil {
			return m, m.load(m.current.ID)
		}

	case tea.KeyMsg:
		switch m.mode {
		case workflowsList:
			return m.updateList(msg)
		case workflowsDetail:
			return m.updateDetail(msg)
		case workflowsForm:
			return m.updateForm(msg)
		case workflowsUpload:
			return m.updateUpload(msg)
		}
	}
	return m, nil
}

func (m workflowsModel) updateList(msg tea.KeyMsg) (workflowsModel, tea.Cmd) {
	key := msg.String()
	if m.confirming {
		m.confirming = false
		if key == "y" && m.cursor < len(m.workflows) {
			return m, m.remove(m.workflows[m.cursor].ID)
		}
		return m, nil
	}
	switch key {
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(m.workflows))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(m.workflows))
	case "enter":
		if m.cursor < len(m.workflows) {
			m.docCursor = 0
			return m, m.load(m.workflows[m.cursor].ID)
		}
	case "n":
		m = m.openForm(nil)
	case "e":
		if m.cursor < len(m.workflows) {
			wf := m.workflows[m.cursor]
			m = m.openForm(&wf)
		}
	case "d":
		if m.cursor < len(m.workflows) {
			m.confirming = true
		}
	case "r":
		m.loading = true
		return m, m.Init()
	}
	return m, nil
}

func (m workflowsModel) remove(id string) tea.Cmd {
	c := m.client
	return fetch("Workflow deleted", func(ctx context.Context) tea.Msg {
		return workflowDeletedMsg{id: id, err: c.DeleteWorkflow(ctx, id)}
	})
}

func (m workflowsModel) updateDetail(msg tea.KeyMsg) (workflowsModel, tea.Cmd) {
	key := msg.String()
	if m.confirming {
		m.confirming = false
		if key == "y" && m.current != nil {
			return m, m.remove(m.current.ID)
		}
		return m, nil
	}
	switch key {
	case "esc":
		m.mode = workflowsList
		m.current = nil
		m.docs = nil
	case "j", "down":
		m.docCursor = clampCursor(m.docCursor+1, len(m.docs))
	case "k", "up":
		m.docCursor = clampCursor(m.docCursor-1, len(m.docs))
	case "e":
		if m.current != nil {
			m = m.openForm(m.current)
		}
	case "d":
		m.confirming = true
	case "u":
		m.mode = workflowsUpload
		m.path = ""
		m.pathErr = ""
	case "x":
		if m.current != nil && m.docCursor < len(m.docs) {
			c, wfID, docID := m.client, m.current.ID, m.docs[m.docCursor].ID
			return m, fetch("Document deleted", func(ctx context.Context) tea.Msg {
				return docDeletedMsg{id: docID, err: c.DeleteWorkflowDocument(ctx, wfID, docID)}
			})
		}
	}
	return m, nil
}

// openForm prepares the create form, or the edit form when wf is set.
func (m workflowsModel) openForm(wf *domain.Workflow) workflowsModel {
	m.fields = []field{
		{label: "Name", key: "name", placeholder: "Renewal reminder"},
		{label: "Description", key: "description", placeholder: "optional"},
		{label: "Greeting", key: "greeting", placeholder: "Hi, this is Acme calling about..."},
		{label: "Keypad menu", key: "ivr_options", placeholder: "1:Talk to sales:transfer; 2:Call me later:callback"},
	}
	m.editingID = ""
	if wf != nil {
		m.editingID = wf.ID
		m.fields[wfName].value = wf.Name
		m.fields[wfDescription].value = wf.Description
		m.fields[wfGreeting].value = wf.Greeting
		m.fields[wfIVR].value = formatIVR(wf.IVROptions)
	}
	m.focus = 0
	m.errs = nil
	m.mode = workflowsForm
	return m
}

func (m workflowsModel) updateForm(msg tea.KeyMsg) (workflowsModel, tea.Cmd) {
	if m.saving {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		if m.current != nil {
			m.mode = workflowsDetail
		} else {
			m.mode = workflowsList
		}
		m.errs = nil
	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.fields)
	case "shift+tab", "up":
		m.focus = (m.focus + len(m.fields) - 1) % len(m.fields)
	case "ctrl+s":
		return m.save()
	case "enter":
		if m.focus < len(m.fields)-1 {
			m.focus++
			return m, nil
		}
		return m.save()
	default:
		f := &m.fields[m.focus]
		f.value = editRune(f.value, msg.String())
		delete(m.errs, f.key)
	}
	return m, nil
}

func (m workflowsModel) save() (workflowsModel, tea.Cmd) {
	ivr, err := parseIVR(m.fields[wfIVR].value)
	if err != nil {
		m.errs = validate.Errors{"ivr_options": err.Error()}
		m.focus = wfIVR
		return m, nil
	}
	req := client.WorkflowRequest{
		Name:        strings.TrimSpace(m.fields[wfName].value),
		Description: strings.TrimSpace(m.fields[wfDescription].value),
		Greeting:    strings.TrimSpace(m.fields[wfGreeting].value),
		IVROptions:  ivr,
	}
	if err := validate.Struct(req); err != nil {
		m.errs = formErrors(validate.Fields(err))
		for i, f := range m.fields {
			if _, bad := m.errs[f.key]; bad {
				m.focus = i
				break
			}
		}
		return m, nil
	}
	m.errs = nil
	m.saving = true
	c, id := m.client, m.editingID
	if id == "" {
		return m, fetch("Workflow created", func(ctx context.Context) tea.Msg {
			wf, err := c.CreateWorkflow(ctx, req)
			return workflowSavedMsg{workflow: wf, err: err}
		})
	}
	return m, fetch("Workflow saved", func(ctx context.Context) tea.Msg {
		wf, err := c.UpdateWorkflow(ctx, id, req)
		return workflowSavedMsg{workflow: wf, err: err}
	})
}

// formErrors folds "ivr_options.N.field" messages onto the keypad menu input.
func formErrors(errs validate.Errors) validate.Errors {
	out := make(validate.Errors, len(errs))
	for k, v := range errs {
		if rest, ok := strings.CutPrefix(k, "ivr_options."); ok {
			if _, seen := out["ivr_options"]; !seen {
				idx, name, _ := strings.Cut(rest, ".")
				out["ivr_options"] = fmt.Sprintf("option %s: %s %s", idx, name, v)
			}
			continue
		}
		out[k] = v
	}
	return out
}

// parseIVR reads "1:Sales:transfer; 2:Later:callback". Blank input means no menu.
func parseIVR(s string) ([]domain.IVROption, error) {
	var out []domain.IVROption
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bits := strings.SplitN(part, ":", 3)
		if len(bits) != 3 {
			return nil, errIVRFormat
		}
		out = append(out, domain.IVROption{
			Digit:  strings.TrimSpace(bits[0]),
			Label:  strings.TrimSpace(bits[1]),
			Action: strings.TrimSpace(bits[2]),
		})
	}
	return out, nil
}

func formatIVR(opts []domain.IVROption) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.Digit + ":" + o.Label + ":" + o.Action
	}
	return strings.Join(parts, "; ")
}

func (m workflowsModel) updateUpload(msg tea.KeyMsg) (workflowsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = workflowsDetail
		m.pathErr = ""
	case "enter":
		path := expandHome(strings.TrimSpace(m.path))
		if path == "" {
			m.pathErr = "enter the path of a file to attach"
			return m, nil
		}
		if m.current == nil {
			return m, nil
		}
		c, wfID := m.client, m.current.ID
		return m, fetch("Document uploaded", func(ctx context.Context) tea.Msg {
			f, err := os.Open(path)
			if err != nil {
				return docUploadedMsg{err: err}
			}
			defer f.Close() //nolint:errcheck
			doc, err := c.UploadWorkflowDocument(ctx, wfID, filepath.Base(path), f)
			return docUploadedMsg{doc: doc, err: err}
		})
	default:
		m.path = editRune(m.path, msg.String())
	}
	return m, nil
}

func (m workflowsModel) helpKeys() string {
	switch m.mode {
	case workflowsDetail:
		return helpBar("j/k", "docs", "u", "upload", "x", "delete doc", "e", "edit", "d", "delete", "esc", "back")
	case workflowsForm:
		return helpBar("tab", "next", "ctrl+s", "save", "esc", "cancel")
	case workflowsUpload:
		return helpBar("enter", "upload", "esc", "cancel")
	}
	return helpBar("j/k", "nav", "enter", "open", "n", "new", "e", "edit", "d", "delete", "r", "refresh", "q", "quit")
}

func (m workflowsModel) View() string {
	switch m.mode {
	case workflowsDetail:
		return m.detailView()
	case workflowsForm:
		return m.formView()
	case workflowsUpload:
		return m.uploadView()
	}

	var b strings.Builder
	b.WriteString("\n")
	if m.loading && len(m.workflows) == 0 {
		b.WriteString("  " + dimStyle.Render("Loading workflows...") + "\n")
		return b.String()
	}
	if len(m.workflows) == 0 {
		b.WriteString("  " + dimStyle.Render("No workflows yet. Press n to create one.") + "\n")
		return b.String()
	}
	b.WriteString("  " + sectionHeaderStyle.Render(padRight("NAME", 30)+padRight("MENU", 8)+padRight("DOCS", 6)+"UPDATED") + "\n")
	for i, wf := range m.workflows {
		row := padRight(truncStr(wf.Name, 28), 30) + padRight(fmt.Sprint(len(wf.IVROptions)), 8) + padRight(fmt.Sprint(wf.Documents), 6) + formatTime(wf.UpdatedAt)
		if i == m.cursor {
			b.WriteString("  " + selectedRowBg.Render(selectedStyle.Render(row)) + "\n")
		} else {
			b.WriteString("  " + normalStyle.Render(row) + "\n")
		}
	}
	if m.confirming && m.cursor < len(m.workflows) {
		b.WriteString("\n  " + warnStyle.Render(fmt.Sprintf("Delete %q? y to confirm", m.workflows[m.cursor].Name)) + "\n")
	}
	return b.String()
}

func (m workflowsModel) detailView() string {
	wf := m.current
	if wf == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render(wf.Name) + "\n")
	if wf.Description != "" {
		b.WriteString("  " + dimStyle.Render(wf.Description) + "\n")
	}
	b.WriteString("\n  " + sectionHeaderStyle.Render("GREETING") + "\n")
	b.WriteString("  " + normalStyle.Render(wf.Greeting) + "\n")

	if len(wf.IVROptions) > 0 {
		b.WriteString("\n  " + sectionHeaderStyle.Render("KEYPAD MENU") + "\n")
		for _, o := range wf.IVROptions {
			fmt.Fprintf(&b, "  %s  %s %s\n", accentStyle.Render("["+o.Digit+"]"), normalStyle.Render(padRight(o.Label, 24)), metaStyle.Render(o.Action))
		}
	}

	b.WriteString("\n  " + sectionHeaderStyle.Render("DOCUMENTS") + "\n")
	if len(m.docs) == 0 {
		b.WriteString("  " + dimStyle.Render("No documents. Press u to upload one.") + "\n")
	}
	for i, d := range m.docs {
		row := padRight(truncStr(d.FileName, 34), 36) + padRight(formatSize(d.Size), 10) + formatTime(d.UploadedAt)
		if i == m.docCursor {
			b.WriteString("  " + selectedRowBg.Render(selectedStyle.Render(row)) + "\n")
		} else {
			b.WriteString("  " + normalStyle.Render(row) + "\n")
		}
	}
	if m.confirming {
		b.WriteString("\n  " + warnStyle.Render(fmt.Sprintf("Delete %q? y to confirm", wf.Name)) + "\n")
	}
	return b.String()
}

func (m workflowsModel) formView() string {
	var b strings.Builder
	title := "New workflow"
	if m.editingID != "" {
		title = "Edit workflow"
	}
	b.WriteString("\n  " + titleStyle.Render(title) + "\n\n")
	for i, f := range m.fields {
		b.WriteString(renderField(f, i == m.focus && !m.saving, m.errs[f.key], m.frame))
	}
	if m.saving {
		b.WriteString("\n  " + accentStyle.Render(spinner(m.frame)+" saving...") + "\n")
	}
	return b.String()
}

func (m workflowsModel) uploadView() string {
	var b strings.Builder
	name := ""
	if m.current != nil {
		name = m.current.Name
	}
	b.WriteString("\n  " + titleStyle.Render("Attach a document") + "  " + dimStyle.Render(name) + "\n\n")
	f := field{label: "File", key: "file", value: m.path, placeholder: "~/pricing.pdf"}
	b.WriteString(renderField(f, true, m.pathErr, m.frame))
	return b.String()
}
