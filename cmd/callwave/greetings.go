package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"

	"github.com/callwave/callwave/internal/tui"
)

var signedOutGreetings = [...]string{
	"Your contacts are waiting. So is the dial tone.",
	"Nobody has ever closed a deal by not calling.",
	"A spreadsheet of leads is just a wish list until someone dials it.",
	"The phones are warm. Your session is not.",
	"Every campaign starts with one sign-in.",
	"Voicemail is patient. Your pipeline is not.",
	"Press start, go get coffee, come back to results.",
}

var (
	bannerTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#38d6f5")).Bold(true)
	bannerQuoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	bannerDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bannerCmdStyle   = lipgloss.NewStyle().Bold(true)
)

func printHelp(w io.Writer) {
	title := bannerTitleStyle.Render("C A L L W A V E")
	quote := bannerQuoteStyle.Render("Bulk calling from your terminal.")

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, quote)
	for _, c := range tui.Commands {
		fmt.Fprintf(w, "    %s  %s\n", bannerCmdStyle.Render(fmt.Sprintf("%-28s", c.Usage)), bannerDimStyle.Render(c.Desc))
	}
	fmt.Fprintf(w, "    %s  %s\n", bannerCmdStyle.Render(fmt.Sprintf("%-28s", "callwave help")), bannerDimStyle.Render("You are here"))
	fmt.Fprintf(w, "\n  %s\n\n", bannerDimStyle.Render("Settings: ~/.callwave/config.yaml or CALLWAVE_* variables"))
}

func printSignedOut(w io.Writer) {
	msg := signedOutGreetings[rand.IntN(len(signedOutGreetings))]
	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n\n",
		bannerTitleStyle.Render("CALLWAVE"),
		bannerQuoteStyle.Render(msg),
		bannerDimStyle.Render("To sign in: callwave login"))
}
