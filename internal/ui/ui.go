package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// UI provides styled terminal output. Results go to out; progress and errors
// go to errOut so that piped results stay clean.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	isTTY    bool
	errTTY   bool
	renderer *lipgloss.Renderer
}

// New creates a UI that writes to out and errOut.
// TTY detection is performed on each writer separately.
func New(out, errOut io.Writer) *UI {
	return &UI{
		out:      out,
		errOut:   errOut,
		isTTY:    isTerminal(out),
		errTTY:   isTerminal(errOut),
		renderer: lipgloss.NewRenderer(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// IsTTY reports whether the output is a terminal.
func (u *UI) IsTTY() bool {
	return u.isTTY
}
