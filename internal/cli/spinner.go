package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// spinner animates a status line on stderr while a schematic is computed.
// It stops on Stop or when its context ends, whichever comes first.
type spinner struct {
	ctx    context.Context
	cancel context.CancelFunc
	w      io.Writer

	mu      sync.Mutex
	message string
	width   int // widest message shown, for clearing

	started bool
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(ctx context.Context, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &spinner{
		ctx:     ctx,
		cancel:  cancel,
		w:       os.Stderr,
		message: message,
		width:   len(message),
		stopped: make(chan struct{}),
	}
}

// Start draws frames until the spinner is stopped.
func (s *spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		defer s.clear()
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %s", styleSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), styleMuted.Render(s.message))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and waits for the line to be cleared. Calling it
// more than once, or after the context ended, is fine.
func (s *spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
	})
}

// Update replaces the message, for example with a completed-of-total count.
func (s *spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.width = max(s.width, len(message))
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+4))
}
