// Package meter implements the serial connection layer shared by the
// B&K Precision LCR meter drivers: transport dialing, command writes
// with a post-command settle delay, and single-line response reads.
package meter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/argart/bklcr/scpi"
)

// Conn is a call-and-response connection to an LCR meter. Commands are
// written one at a time, terminated by a newline; responses are single
// ASCII lines. Conn performs no locking; callers interleave commands
// sequentially. Close is the one exception and is safe to call from
// another goroutine while a read is in flight.
type Conn struct {
	transport   Transport
	scanner     *bufio.Scanner
	settleDelay time.Duration
	closed      atomic.Bool
}

// Dial opens a transport via the configured Dialer and wraps it in a
// Conn.
func Dial(ctx context.Context, config Config) (*Conn, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewConn(transport, config), nil
}

// NewConn wraps an already-connected transport. Used directly by tests
// and by callers that manage their own transports.
func NewConn(transport Transport, config Config) *Conn {
	config.setDefaults()
	scanner := bufio.NewScanner(transport)
	scanner.Buffer(make([]byte, config.MaxLineSize), config.MaxLineSize)
	scanner.Split(scpi.Splitter)
	return &Conn{
		transport:   transport,
		scanner:     scanner,
		settleDelay: config.SettleDelay,
	}
}

// Send writes a command to the meter, newline-terminated, then sleeps
// the settle delay. Both transport buffers are flushed first so a
// stale response cannot answer a later query.
func (c *Conn) Send(ctx context.Context, cmd string) error {
	if c.closed.Load() {
		return ErrAlreadyClosed
	}
	if c.transport == nil {
		return ErrNotInitialized
	}

	c.Flush()

	wire := strings.TrimSpace(cmd) + scpi.Terminator
	if _, err := c.transport.Write([]byte(wire)); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}

	return c.settle(ctx)
}

// Query sends a command and parses the single response line. Only
// "?"-suffixed commands produce a response on these meters; calling
// Query with a setter will block until the read times out.
func (c *Conn) Query(ctx context.Context, cmd string) (scpi.Values, error) {
	if err := c.Send(ctx, cmd); err != nil {
		return nil, err
	}
	return c.ReadValues()
}

// ReadValues reads and parses the next response line without sending
// anything. This is the primitive behind the streaming fetch mode,
// where the meter emits readings continuously.
func (c *Conn) ReadValues() (scpi.Values, error) {
	if c.closed.Load() {
		return nil, ErrAlreadyClosed
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			if errors.Is(err, io.ErrNoProgress) {
				return nil, ErrNoReading
			}
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, io.EOF
	}

	values := scpi.Parse(c.scanner.Text())
	if values.Empty() {
		return nil, ErrNoReading
	}
	return values, nil
}

// Flush discards buffered bytes in both directions when the transport
// supports it.
func (c *Conn) Flush() {
	if f, ok := c.transport.(Flusher); ok {
		f.ResetInputBuffer()
		f.ResetOutputBuffer()
	}
}

// Close shuts down the connection and releases the transport. After
// calling Close, the connection cannot be reused.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}

	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

// settle pauses between commands so the meter doesn't error out when
// other commands immediately follow.
func (c *Conn) settle(ctx context.Context) error {
	if c.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.settleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
