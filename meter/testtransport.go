package meter

import (
	"io"
	"strings"
	"sync"

	"github.com/argart/bklcr/scpi"
)

// TestTransport is a test helper that simulates a blocking transport
// using channels. Reads block until data is queued, like a real serial
// port, and every write is recorded so tests can assert on the exact
// command strings that went over the wire.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	writes   []string
	flushes  int
	closed   bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use by the driver package tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 10),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, string(p))
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

func (t *TestTransport) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushes++
	return nil
}

func (t *TestTransport) ResetOutputBuffer() error { return nil }

// SendData queues data to be read by the transport. This simulates a
// response line arriving from the meter.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Commands returns the newline-terminated commands written so far,
// with terminators stripped.
func (t *TestTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmds := make([]string, 0, len(t.writes))
	for _, w := range t.writes {
		cmds = append(cmds, strings.TrimSuffix(w, scpi.Terminator))
	}
	return cmds
}

// Flushes reports how many times the input buffer was reset.
func (t *TestTransport) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

var (
	_ Transport = (*TestTransport)(nil)
	_ Flusher   = (*TestTransport)(nil)
)
