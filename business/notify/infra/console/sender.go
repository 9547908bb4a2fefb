// Package console writes alert messages to standard output. It is the
// delivery fallback when no Telegram credentials are configured.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/arbscan/arbscan/business/notify/app"
)

// Sender prints alert messages to a writer, one per line block.
type Sender struct {
	mu  sync.Mutex
	out io.Writer
}

var _ app.Sender = (*Sender)(nil)

// NewSender returns a sender writing to stdout.
func NewSender() *Sender {
	return &Sender{out: os.Stdout}
}

// NewSenderWithWriter returns a sender writing to the given writer.
func NewSenderWithWriter(out io.Writer) *Sender {
	return &Sender{out: out}
}

// Send writes the message followed by a separator line.
func (s *Sender) Send(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s\n%s\n", message, separator); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}

	return nil
}

// Close is a no-op; stdout is not ours to close.
func (s *Sender) Close() error {
	return nil
}

const separator = "----------------------------------------"
