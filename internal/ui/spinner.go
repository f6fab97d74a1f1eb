package ui

import (
	"fmt"
	"time"
)

var brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner displays an animated progress indicator on errOut.
type Spinner struct {
	done    chan struct{}
	stopped chan struct{}
}

// StartSpinner begins an animated spinner with the given message.
// When errOut is not a terminal it prints the message once and returns
// immediately. Call Stop() to clear the spinner line.
func (u *UI) StartSpinner(msg string) *Spinner {
	s := &Spinner{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if !u.errTTY {
		_, _ = fmt.Fprintf(u.errOut, "  %s...\n", msg)
		close(s.stopped)
		return s
	}

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.done:
				_, _ = fmt.Fprint(u.errOut, "\r\033[K")
				return
			case <-ticker.C:
				frame := brailleFrames[i%len(brailleFrames)]
				_, _ = fmt.Fprintf(u.errOut, "\r  %s %s", frame, msg)
			}
		}
	}()

	return s
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
}
