package color

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Status icons.
const (
	IconOK   = "✓"
	IconFail = "✗"
	IconOff  = "○"
)

// Styles is the palette used for CLI output.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	OK    lipgloss.Style
	Fail  lipgloss.Style
	Warn  lipgloss.Style
	Muted lipgloss.Style
}

// NewStyles returns styles rendered for w.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	if termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return newStyles(r)
}

// Plain returns styles that never emit escape sequences.
func Plain() Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return newStyles(r)
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1F5FAF", Dark: "#7AA2F7"}),
		Label: r.NewStyle().Bold(true),
		OK:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#9ECE6A"}),
		Fail:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#F7768E"}),
		Warn:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#E0AF68"}),
		Muted: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#565F89"}),
	}
}

// Status renders an icon for a boolean state.
func (s Styles) Status(ok bool) string {
	if ok {
		return s.OK.Render(IconOK)
	}
	return s.Muted.Render(IconOff)
}
