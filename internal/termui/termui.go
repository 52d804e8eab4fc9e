// Package termui renders a check run in the terminal.
package termui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

type palette struct {
	ok, warn, bad, muted, accent lipgloss.Color
}

var (
	darkPalette  = palette{ok: "76", warn: "214", bad: "204", muted: "243", accent: "69"}
	lightPalette = palette{ok: "28", warn: "130", bad: "160", muted: "240", accent: "25"}
)

const barWidth = 30

// Renderer prints log lines as they arrive and a summary box at the end.
type Renderer struct {
	mu  sync.Mutex
	w   io.Writer
	pal palette
}

func New(w io.Writer, theme prefs.Theme) *Renderer {
	pal := darkPalette
	if theme == prefs.ThemeLight {
		pal = lightPalette
	}
	return &Renderer{w: w, pal: pal}
}

func (r *Renderer) style(kind sequencer.Kind) lipgloss.Style {
	var c lipgloss.Color
	switch kind.Style() {
	case "ok":
		c = r.pal.ok
	case "warn":
		c = r.pal.warn
	case "bad":
		c = r.pal.bad
	default:
		c = r.pal.muted
	}
	return lipgloss.NewStyle().Foreground(c)
}

// LineAppended makes the renderer a logpane.Publisher.
func (r *Renderer) LineAppended(line string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, lipgloss.NewStyle().Foreground(r.pal.muted).Render(line))
}

func (r *Renderer) Cleared() {}

// Bar draws a progress bar of pct percent.
func (r *Renderer) Bar(pct int) string {
	pct = max(0, min(100, pct))
	filled := pct * barWidth / 100
	return lipgloss.NewStyle().Foreground(r.pal.accent).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(r.pal.muted).Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3d%%", pct)
}

// Summary renders the final indicator, status and modules tags.
func (r *Renderer) Summary(snap sequencer.Snapshot, stages []sequencer.Stage) string {
	label := lipgloss.NewStyle().Foreground(r.pal.muted).Width(20)

	var b strings.Builder
	b.WriteString(r.Bar(snap.Progress))
	b.WriteString("\n\n")
	for _, st := range stages {
		ind := snap.Indicators[st.Key]
		b.WriteString(label.Render(st.Name))
		b.WriteString(r.style(ind.Kind).Render(ind.Label))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(label.Render("Modules"))
	b.WriteString(r.style(snap.Modules).Bold(true).Render(sequencer.ModulesLabel(snap.Modules)))
	b.WriteByte('\n')
	b.WriteString(label.Render("Status"))
	b.WriteString(r.style(snap.Status.Kind).Bold(true).Render(snap.Status.Label))

	border := r.style(snap.Status.Kind).GetForeground()
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(b.String())
}

// Print writes the summary followed by a newline.
func (r *Renderer) Print(snap sequencer.Snapshot, stages []sequencer.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, r.Summary(snap, stages))
}
