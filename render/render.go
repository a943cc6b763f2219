// Package render prints transcripts, sessions and models to a terminal.
// Output is styled when the writer is a TTY and plain otherwise.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SaiNageswarS/doqq/controller"
	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/memory"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	Accent      = lipgloss.Color("#8BC34A")
	Info        = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#808890")
	Destructive = lipgloss.Color("#e53935")
)

type styles struct {
	user    lipgloss.Style
	doqq    lipgloss.Style
	status  lipgloss.Style
	err     lipgloss.Style
	heading lipgloss.Style
}

func newStyles() styles {
	return styles{
		user:    lipgloss.NewStyle().Bold(true).Foreground(Info),
		doqq:    lipgloss.NewStyle().Bold(true).Foreground(Accent),
		status:  lipgloss.NewStyle().Italic(true).Foreground(Muted),
		err:     lipgloss.NewStyle().Bold(true).Foreground(Destructive),
		heading: lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// Printer writes doqq output to out.
type Printer struct {
	out      io.Writer
	styled   bool
	styles   styles
	markdown *glamour.TermRenderer
}

// NewPrinter styles output only when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	return newPrinter(out, isTerminal(out))
}

func newPrinter(out io.Writer, styled bool) *Printer {
	p := &Printer{out: out, styled: styled, styles: newStyles()}
	if styled {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			p.markdown = renderer
		}
	}
	return p
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Line prints one transcript line.
func (p *Printer) Line(line controller.Line) {
	fmt.Fprintln(p.out, p.formatLine(line))
}

func (p *Printer) formatLine(line controller.Line) string {
	switch {
	case line.Status:
		return p.style(p.styles.status, "* "+line.Content)
	case line.Role == llm.RoleUser:
		return p.style(p.styles.user, "you:") + " " + line.Content
	default:
		return p.style(p.styles.doqq, "doqq:") + " " + p.renderMarkdown(line.Content)
	}
}

// Transcript prints every line of a transcript.
func (p *Printer) Transcript(lines []controller.Line) {
	for _, line := range lines {
		p.Line(line)
	}
}

// Sessions prints one row per session, most recent first.
func (p *Printer) Sessions(convs []memory.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(p.out, p.style(p.styles.status, "No sessions yet"))
		return
	}

	fmt.Fprintln(p.out, p.style(p.styles.heading, "Sessions"))
	for _, conv := range convs {
		name := conv.Name
		if name == "" {
			name = "(empty)"
		}
		fmt.Fprintf(p.out, "%4d  %-32s %-20s %d messages\n", conv.ID, name, conv.ModelName, len(conv.Visible()))
	}
}

// Models prints the installed models, marking the selected one.
func (p *Printer) Models(models []llm.ModelInfo, selected string) {
	if len(models) == 0 {
		fmt.Fprintln(p.out, p.style(p.styles.status, "No models installed"))
		return
	}

	fmt.Fprintln(p.out, p.style(p.styles.heading, "Models"))
	for _, model := range models {
		marker := " "
		if model.Name == selected {
			marker = p.style(p.styles.doqq, "*")
		}
		details := strings.TrimSpace(strings.Join([]string{model.Details.ParameterSize, model.Details.QuantizationLevel}, " "))
		fmt.Fprintf(p.out, "%s %-32s %s\n", marker, model.Name, details)
	}
}

// Error prints err on its own line.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(p.out, p.style(p.styles.err, "error:")+" "+err.Error())
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) renderMarkdown(content string) string {
	if p.markdown == nil {
		return content
	}
	out, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}
