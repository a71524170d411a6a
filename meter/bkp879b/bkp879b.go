// Package bkp879b drives the B&K Precision 879B handheld LCR meter
// over its serial interface. It should also work with the 878B.
//
// The meter speaks an ASCII SCPI-like dialect at 9600 8N1. Every
// operation maps one method call onto one command string; queries
// return a single parsed response line.
package bkp879b

import (
	"context"
	"fmt"
	"strings"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/scpi"
)

// Primary measurement parameters.
const (
	PrimaryL = "L" // Inductance
	PrimaryC = "C" // Capacitance
	PrimaryR = "R" // Resistance
	PrimaryZ = "Z" // Impedance
)

// Secondary measurement parameters.
const (
	SecondaryD     = "D"     // Dissipation factor
	SecondaryQ     = "Q"     // Quality factor
	SecondaryTheta = "THETA" // Phase angle
	SecondaryESR   = "ESR"   // Equivalent series resistance
)

var (
	frequencies = map[int]bool{100: true, 120: true, 1000: true, 10000: true}
	primaries   = map[string]bool{PrimaryL: true, PrimaryC: true, PrimaryR: true, PrimaryZ: true}
	secondaries = map[string]bool{SecondaryD: true, SecondaryQ: true, SecondaryTheta: true, SecondaryESR: true}
	tolerances  = map[int]bool{1: true, 5: true, 10: true, 20: true}
)

// Meter is a connected 878B/879B.
type Meter struct {
	conn *meter.Conn
}

// Dial connects to a meter using the given connection config.
func Dial(ctx context.Context, config meter.Config) (*Meter, error) {
	conn, err := meter.Dial(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Meter{conn: conn}, nil
}

// Open connects to a meter on the named serial port with default
// settings (9600 8N1, 150ms settle delay).
func Open(ctx context.Context, portName string) (*Meter, error) {
	config, err := meter.NewConfigBuilder().
		WithDialer(meter.SerialDialer{PortName: portName}).
		Build()
	if err != nil {
		return nil, err
	}
	return Dial(ctx, config)
}

// New wraps an existing connection. Used by tests and by callers that
// manage their own transports.
func New(conn *meter.Conn) *Meter {
	return &Meter{conn: conn}
}

// Close closes the connection to the meter.
func (m *Meter) Close() error {
	return m.conn.Close()
}

// Fetch returns the primary, secondary, and tolerance-compared result
// currently measured by the device: primary value (float), secondary
// value (float), and compared bin (int, null when comparison is off).
func (m *Meter) Fetch(ctx context.Context) (scpi.Values, error) {
	return m.conn.Query(ctx, "FETCh?")
}

// Frequency subsystem.

// SetFrequency sets the test frequency. Accepted values are 100, 120,
// 1000, and 10000 Hz.
func (m *Meter) SetFrequency(ctx context.Context, hz int) error {
	if !frequencies[hz] {
		return fmt.Errorf("frequency %d Hz (valid: 100, 120, 1000, 10000): %w",
			hz, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("FREQuency %d", hz))
}

// Frequency returns the current test frequency setting as reported by
// the meter: "100Hz", "120Hz", "1kHz", or "10kHz".
func (m *Meter) Frequency(ctx context.Context) (string, error) {
	vals, err := m.conn.Query(ctx, "FREQuency?")
	if err != nil {
		return "", err
	}
	return vals.StringAt(0)
}

// Function subsystem.

// SetPrimary selects the primary measurement parameter: L, C, R, or Z.
func (m *Meter) SetPrimary(ctx context.Context, param string) error {
	param = strings.ToUpper(param)
	if !primaries[param] {
		return fmt.Errorf("primary parameter %q (valid: L, C, R, Z): %w",
			param, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, "FUNCtion:IMPA "+param)
}

// Primary returns the primary measurement parameter: L, C, R, or Z.
func (m *Meter) Primary(ctx context.Context) (string, error) {
	vals, err := m.conn.Query(ctx, "FUNCtion:IMPA?")
	if err != nil {
		return "", err
	}
	return vals.StringAt(0)
}

// SetSecondary selects the secondary measurement parameter: D, Q,
// THETA, or ESR.
func (m *Meter) SetSecondary(ctx context.Context, param string) error {
	param = strings.ToUpper(param)
	if !secondaries[param] {
		return fmt.Errorf("secondary parameter %q (valid: D, Q, THETA, ESR): %w",
			param, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, "FUNCtion:IMPB "+param)
}

// Secondary returns the secondary measurement parameter: D, Q, THETA,
// or ESR.
func (m *Meter) Secondary(ctx context.Context) (string, error) {
	vals, err := m.conn.Query(ctx, "FUNCtion:IMPB?")
	if err != nil {
		return "", err
	}
	return vals.StringAt(0)
}

// SetEquivalentSeries selects the series equivalent circuit model.
func (m *Meter) SetEquivalentSeries(ctx context.Context) error {
	return m.conn.Send(ctx, "FUNCtion:EQUivalent SERies")
}

// SetEquivalentParallel selects the parallel equivalent circuit model.
func (m *Meter) SetEquivalentParallel(ctx context.Context) error {
	return m.conn.Send(ctx, "FUNCtion:EQUivalent PARallel")
}

// Equivalent returns the equivalent circuit model: "SER" or "PAL".
func (m *Meter) Equivalent(ctx context.Context) (string, error) {
	vals, err := m.conn.Query(ctx, "FUNCtion:EQUivalent?")
	if err != nil {
		return "", err
	}
	return vals.StringAt(0)
}

// Calculate subsystem.

// SetRelative enables or disables the relative (offset) function.
func (m *Meter) SetRelative(ctx context.Context, on bool) error {
	return m.conn.Send(ctx, "CALCulate:RELative:STATe "+scpi.OnOff(on))
}

// RelativeState reports whether the relative function is active.
func (m *Meter) RelativeState(ctx context.Context) (bool, error) {
	vals, err := m.conn.Query(ctx, "CALCulate:RELative:STATe?")
	if err != nil {
		return false, err
	}
	return vals.BoolAt(0)
}

// RelativeValue returns the relative offset. ok is false when the
// relative function is inactive and the meter reports no value.
func (m *Meter) RelativeValue(ctx context.Context) (value float64, ok bool, err error) {
	return m.nullableFloat(ctx, "CALCulate:RELative:VALUe?")
}

// SetToleranceState enables or disables tolerance comparison.
func (m *Meter) SetToleranceState(ctx context.Context, on bool) error {
	return m.conn.Send(ctx, "CALCulate:TOLerance:STATe "+scpi.OnOff(on))
}

// ToleranceState reports whether tolerance comparison is active.
func (m *Meter) ToleranceState(ctx context.Context) (bool, error) {
	vals, err := m.conn.Query(ctx, "CALCulate:TOLerance:STATe?")
	if err != nil {
		return false, err
	}
	return vals.BoolAt(0)
}

// SetToleranceRange sets the tolerance range to 1, 5, 10, or 20
// percent.
func (m *Meter) SetToleranceRange(ctx context.Context, percent int) error {
	if !tolerances[percent] {
		return fmt.Errorf("tolerance range %d%% (valid: 1, 5, 10, 20): %w",
			percent, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("CALCulate:TOLerance:RANGe %d", percent))
}

// ToleranceRange returns the tolerance bin ("BIN1".."BIN4"). ok is
// false when comparison is off.
func (m *Meter) ToleranceRange(ctx context.Context) (bin string, ok bool, err error) {
	vals, err := m.conn.Query(ctx, "CALCulate:TOLerance:RANGe?")
	if err != nil {
		return "", false, err
	}
	v, err := vals.Single()
	if err != nil {
		return "", false, err
	}
	if v.IsNull() {
		return "", false, nil
	}
	s, isString := v.AsString()
	if !isString {
		return "", false, fmt.Errorf("tolerance range %v: %w", v, scpi.ErrBadResponse)
	}
	return s, true, nil
}

// ToleranceNominal returns the nominal value of the tolerance
// comparison. ok is false when unavailable.
func (m *Meter) ToleranceNominal(ctx context.Context) (value float64, ok bool, err error) {
	return m.nullableFloat(ctx, "CALCulate:TOLerance:NOMinal?")
}

// ToleranceValue returns the percent deviation of the tolerance
// comparison. ok is false when unavailable.
func (m *Meter) ToleranceValue(ctx context.Context) (value float64, ok bool, err error) {
	return m.nullableFloat(ctx, "CALCulate:TOLerance:VALUe?")
}

// SetRecordingState enables or disables min/max/average recording.
func (m *Meter) SetRecordingState(ctx context.Context, on bool) error {
	return m.conn.Send(ctx, "CALCulate:RECording:STATe "+scpi.OnOff(on))
}

// RecordingState reports whether recording is active.
func (m *Meter) RecordingState(ctx context.Context) (bool, error) {
	vals, err := m.conn.Query(ctx, "CALCulate:RECording:STATe?")
	if err != nil {
		return false, err
	}
	return vals.BoolAt(0)
}

// RecordingMaximum returns the maximum recorded primary and secondary
// measurements.
func (m *Meter) RecordingMaximum(ctx context.Context) (primary, secondary float64, err error) {
	return m.recordingPair(ctx, "CALCulate:RECording:MAXimum?")
}

// RecordingMinimum returns the minimum recorded primary and secondary
// measurements.
func (m *Meter) RecordingMinimum(ctx context.Context) (primary, secondary float64, err error) {
	return m.recordingPair(ctx, "CALCulate:RECording:MINimum?")
}

// RecordingAverage returns the average recorded primary and secondary
// measurements.
func (m *Meter) RecordingAverage(ctx context.Context) (primary, secondary float64, err error) {
	return m.recordingPair(ctx, "CALCulate:RECording:AVERage?")
}

// RecordingPresent returns the present primary and secondary
// measurements of the recording function.
func (m *Meter) RecordingPresent(ctx context.Context) (primary, secondary float64, err error) {
	return m.recordingPair(ctx, "CALCulate:RECording:PRESent?")
}

// IEEE 488 commands.

// LocalLockout locks the front panel.
func (m *Meter) LocalLockout(ctx context.Context) error {
	return m.conn.Send(ctx, "*LLO")
}

// GoLocal puts the meter into local state, clearing front-panel
// lockout.
func (m *Meter) GoLocal(ctx context.Context) error {
	return m.conn.Send(ctx, "*GLO")
}

// Identify returns the instrument identification: model, firmware
// version, and serial number.
func (m *Meter) Identify(ctx context.Context) (meter.Identity, error) {
	vals, err := m.conn.Query(ctx, "*IDN?")
	if err != nil {
		return meter.Identity{}, err
	}
	return meter.ParseIdentity(vals), nil
}

func (m *Meter) nullableFloat(ctx context.Context, cmd string) (float64, bool, error) {
	vals, err := m.conn.Query(ctx, cmd)
	if err != nil {
		return 0, false, err
	}
	v, err := vals.Single()
	if err != nil {
		return 0, false, err
	}
	if v.IsNull() {
		return 0, false, nil
	}
	f, isFloat := v.AsFloat()
	if !isFloat {
		return 0, false, fmt.Errorf("value %v, want float: %w", v, scpi.ErrBadResponse)
	}
	return f, true, nil
}

func (m *Meter) recordingPair(ctx context.Context, cmd string) (float64, float64, error) {
	vals, err := m.conn.Query(ctx, cmd)
	if err != nil {
		return 0, 0, err
	}
	primary, err := vals.FloatAt(0)
	if err != nil {
		return 0, 0, err
	}
	secondary, err := vals.FloatAt(1)
	if err != nil {
		return 0, 0, err
	}
	return primary, secondary, nil
}
