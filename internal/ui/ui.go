// Package ui prints the short status lines used by interactive commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Printer writes status lines to a writer. Marks are colored only when the
// writer is a terminal.
type Printer struct {
	w      io.Writer
	styled bool
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, styled: styled}
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *Printer) Header(title string) {
	rule := strings.Repeat("─", len(title)+2)
	fmt.Fprintf(p.w, " %s\n", rule)
	fmt.Fprintf(p.w, " %s\n", p.render(headerStyle, title))
	fmt.Fprintf(p.w, " %s\n", rule)
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, " %s %s\n", p.render(successStyle, "✓"), fmt.Sprintf(format, args...))
}

func (p *Printer) Error(msg string, err error) {
	mark := p.render(errorStyle, "✗")
	if err != nil {
		fmt.Fprintf(p.w, " %s %s: %v\n", mark, msg, err)
		return
	}
	fmt.Fprintf(p.w, " %s %s\n", mark, msg)
}

func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.w, " %s %s\n", p.render(warnStyle, "!"), fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, " %s %s\n", p.render(infoStyle, "ℹ"), fmt.Sprintf(format, args...))
}

// Line prints an unmarked line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}
