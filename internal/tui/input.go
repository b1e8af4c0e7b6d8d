package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 2000

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		return editRune(text, " ")
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// field is one labelled text input in a form.
type field struct {
	label       string
	key         string // validation key, matches the request's json tag
	value       string
	placeholder string
	secret      bool
}

// renderField renders a form field with its validation message underneath.
func renderField(f field, focused bool, errMsg string, animFrame int) string {
	var b strings.Builder

	label := dimStyle.Render(padRight(f.label, 14))
	if focused {
		label = inputPromptStyle.Render(padRight(f.label, 14))
	}

	value := f.value
	if f.secret {
		value = strings.Repeat("•", utf8.RuneCountInString(f.value))
	}

	b.WriteString("  " + label)
	switch {
	case value == "" && !focused:
		b.WriteString(inputPlaceholderStyle.Render(f.placeholder))
	case focused:
		b.WriteString(normalStyle.Render(value))
		if (animFrame/4)%2 == 0 {
			b.WriteString(accentStyle.Render("█"))
		} else {
			b.WriteString(" ")
		}
	default:
		b.WriteString(normalStyle.Render(value))
	}
	b.WriteString("\n")
	if errMsg != "" {
		b.WriteString("  " + padRight("", 14) + errorStyle.Render(errMsg) + "\n")
	}
	return b.String()
}
