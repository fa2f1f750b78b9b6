package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupted is the conventional exit status after SIGINT.
const ExitInterrupted = 130

// InterruptHandler cancels a context on SIGINT or SIGTERM and tells the user how
// to recover.
type InterruptHandler struct {
	writer      io.Writer
	hint        string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler writing to writer.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context cancelled on the first interrupt signal.
// hint, when set, is printed after the interrupt notice.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, hint string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.hint = hint

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true

	msg := "\n" + FormatWarning("Interrupted!") + "\n"
	if h.hint != "" {
		msg += FormatInfo(h.hint) + "\n"
	}
	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if a signal was received.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// ExitCode maps a command result to a process exit status. An interrupt wins over
// any error it caused; a prompt the user quit is a clean exit.
func (h *InterruptHandler) ExitCode(err error) int {
	switch {
	case h.WasInterrupted():
		return ExitInterrupted
	case err == nil, IsCancelled(err):
		return 0
	default:
		return 1
	}
}
