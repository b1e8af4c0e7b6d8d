package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const toastTTL = 4 * time.Second

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

type toast struct {
	id   int
	kind toastKind
	text string
}

// toastExpiredMsg dismisses the toast with the given id.
type toastExpiredMsg struct{ id int }

// toasts is a short queue of transient notices; only the newest is shown.
type toasts struct {
	next  int
	items []toast
}

// push adds a toast unless the same text is already showing, and returns the
// command that dismisses it.
func (t *toasts) push(kind toastKind, text string) tea.Cmd {
	if text == "" {
		return nil
	}
	for _, it := range t.items {
		if it.text == text {
			return nil
		}
	}
	t.next++
	id := t.next
	t.items = append(t.items, toast{id: id, kind: kind, text: text})
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (t *toasts) dismiss(id int) {
	for i, it := range t.items {
		if it.id == id {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return
		}
	}
}

func (t toasts) View() string {
	if len(t.items) == 0 {
		return ""
	}
	it := t.items[len(t.items)-1]
	switch it.kind {
	case toastSuccess:
		return " " + successStyle.Render("✓ "+it.text)
	case toastError:
		return " " + errorStyle.Render("✗ "+it.text)
	default:
		return " " + accentStyle.Render("• "+it.text)
	}
}
