package bkp879b

import (
	"context"
	"errors"

	"github.com/argart/bklcr/scpi"
)

// Reading is one element of the AutoFetch stream. When Err is set,
// Values is nil; a timeout waiting for a reading surfaces as
// meter.ErrNoReading.
type Reading struct {
	Values scpi.Values
	Err    error
}

// AutoFetch streams readings from the meter without re-sending a
// command. The 879B emits a fetch line continuously while in remote
// mode, so this just reads response lines as they arrive.
//
// quantity limits how many successful readings are delivered; 0 means
// unlimited. The stream ends when the quantity is reached, the context
// is cancelled, or a read fails. A failed read is delivered with Err
// set, does not count toward quantity, and ends the stream.
//
// The channel is closed when the stream ends. AutoFetch owns the
// connection while streaming; interleaving other commands corrupts the
// readings.
func (m *Meter) AutoFetch(ctx context.Context, quantity int) (<-chan Reading, error) {
	if ctx == nil {
		return nil, errors.New("bkp879b: context is nil")
	}

	m.conn.Flush()

	readings := make(chan Reading)
	go func() {
		defer close(readings)
		counter := 0

		for {
			values, err := m.conn.ReadValues()

			reading := Reading{Values: values, Err: err}
			select {
			case readings <- reading:
			case <-ctx.Done():
				return
			}

			if err != nil {
				// Read errors from the scanner are sticky; nothing
				// more will arrive on this connection.
				return
			}

			counter++
			if quantity != 0 && counter == quantity {
				return
			}
		}
	}()

	return readings, nil
}
