package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// loadingMsg moves the global in-flight counter by its value.
type loadingMsg int

// fetchedMsg wraps a view's result message once its request has finished.
// The app unwraps it, drops the loading counter, and toasts the outcome.
type fetchedMsg struct {
	msg     tea.Msg
	success string
}

// result is implemented by every message produced through fetch.
type result interface {
	failed() error
}

// fetch runs fn as a command while holding the global loading counter.
// A failed result is toasted with the normalized API message; success is
// toasted only when non-empty, which views use for mutating calls.
func fetch(success string, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg { return loadingMsg(1) },
		func() tea.Msg {
			return fetchedMsg{msg: fn(context.Background()), success: success}
		},
	)
}
