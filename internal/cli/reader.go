package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a prompt is abandoned: the context was
// cancelled, input ended, or the user chose to quit.
var ErrInputCancelled = errors.New("input canceled")

// IsCancelled reports whether err means the user abandoned a prompt. A cancelled
// context is not a user choice and does not count.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrInputCancelled)
}

// LineReader reads lines without blocking past context cancellation.
type LineReader struct {
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next trimmed line. A final line without a newline is
// returned as is; end of input with nothing read is ErrInputCancelled.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// The read goroutine finishes when input arrives or stdin closes
		return "", ErrInputCancelled
	case res := <-resultCh:
		if errors.Is(res.err, io.EOF) {
			if res.value == "" {
				return "", ErrInputCancelled
			}
			return strings.TrimSpace(res.value), nil
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
