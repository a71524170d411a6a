package meter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to an
// LCR meter.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send commands and
// receive response lines. Typical implementations include serial
// ports, TCP bridges, or in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Flusher is optionally implemented by transports whose buffers can be
// discarded. The connection flushes both directions before every
// command so a stale reading never answers a fresh query.
type Flusher interface {
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Dialer opens a Transport to an LCR meter.
//
// Dialer abstracts how the meter connection is created (serial port,
// bridge, or test double) and is intended to be used during connection
// construction only. Once a Transport is obtained, the Dialer is no
// longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens an LCR meter over a serial port using
// go.bug.st/serial. The meters ship configured for 9600 8N1, which is
// the default Mode.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0" or "COM3".
	PortName string
	// Mode overrides the port parameters. Nil selects 9600 8N1.
	Mode *serial.Mode
	// ReadTimeout bounds a single read on the port. Zero selects the
	// connection default.
	ReadTimeout time.Duration
}

// Dial implements the Dialer interface.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("meter: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("meter: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 9600,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
			return nil, fmt.Errorf("open %s: %w", d.PortName, ErrPortBusy)
		}
		return nil, fmt.Errorf("open %s: %w", d.PortName, err)
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
	}

	return port, nil
}

// serial.Port exposes ResetInputBuffer/ResetOutputBuffer, so a dialed
// port participates in pre-command flushing.
var _ Flusher = (serial.Port)(nil)
