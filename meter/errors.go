package meter

import "errors"

var (
	// ErrNoDialer is returned when a connection is configured without a
	// Dialer.
	//
	// This indicates a configuration error. A Dialer is required in
	// order to establish a connection to the meter.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// connection that has no transport.
	ErrNotInitialized = errors.New("connection not initialized")

	// ErrAlreadyClosed is returned when Close is called on a connection
	// that has already been closed, or a command is sent over one.
	ErrAlreadyClosed = errors.New("connection already closed")

	// ErrPortBusy is returned when the serial device exists but is held
	// open by another process.
	ErrPortBusy = errors.New("serial port busy")

	// ErrInvalidParam is returned (wrapped, with detail) when a command
	// parameter falls outside the set the meter accepts. The command is
	// never sent in that case.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrNoReading is returned when the meter produced no response line
	// before the read timeout elapsed.
	ErrNoReading = errors.New("no reading available")
)
