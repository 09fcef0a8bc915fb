// Package ui provides terminal styling for quotesync command output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/quote"
)

var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#64B5F6"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#8BC34A"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFC107"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E57373"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	accentStyle   = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	passStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle     = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	quoteStyle    = lipgloss.NewStyle().Italic(true).PaddingLeft(2).BorderStyle(lipgloss.ThickBorder()).BorderLeft(true).BorderForeground(ColorAccent)
	categoryStyle = lipgloss.NewStyle().Foreground(ColorMuted).PaddingLeft(3)
)

// Init picks the color profile for w. NO_COLOR and non-terminal writers
// disable styling.
func Init(w io.Writer) {
	out := termenv.NewOutput(w)
	profile := out.EnvColorProfile()
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		profile = termenv.Ascii
	}
	lipgloss.SetColorProfile(profile)
	lipgloss.SetHasDarkBackground(out.HasDarkBackground())
}

// DisableColor turns all styling into plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }

// RenderQuote formats a quote with its category and sync marker.
func RenderQuote(r quote.Record) string {
	marker := RenderWarn("local")
	if r.Synced() {
		marker = RenderPass("synced #" + r.RemoteID)
	}
	return quoteStyle.Render(fmt.Sprintf("“%s”", r.Text)) + "\n" +
		categoryStyle.Render(fmt.Sprintf("%s · %s", r.Category, marker))
}

// RenderStatus colors a status line by severity.
func RenderStatus(st engine.Status) string {
	switch st.Kind {
	case engine.StatusSynced, engine.StatusUpToDate, engine.StatusAlreadyUpToDate:
		return RenderPass("✓ " + st.Message)
	case engine.StatusOffline, engine.StatusNoData:
		return RenderWarn("⚠ " + st.Message)
	case engine.StatusError:
		return RenderFail("✗ " + st.Message)
	default:
		return RenderMuted(st.Message)
	}
}

// RenderCategories joins categories, highlighting selected.
func RenderCategories(cats []string, selected string) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		if c == selected {
			parts = append(parts, RenderAccent(c))
			continue
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}
