// Package bkp891 drives the B&K Precision 891 bench LCR meter over
// its serial interface.
//
// The 891 speaks an ASCII SCPI dialect at 9600 8N1. Every operation
// maps one method call onto one command string; queries return a
// single parsed response line.
package bkp891

import (
	"context"
	"fmt"
	"time"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/scpi"
)

// Function selects the measurement function (MEASurement:FUNCtion).
type Function int

const (
	FuncCsQ Function = iota
	FuncCsD
	FuncCsR
	FuncCpQ
	FuncCpD
	FuncCpR
	FuncCpG
	FuncLsQ
	FuncLsD
	FuncLsR
	FuncLpQ
	FuncLpD
	FuncLpR
	FuncLpG
	FuncZTheta
	FuncYTheta
	FuncRX
	FuncGB
	FuncDCR
)

var functionNames = [...]string{
	"CSQ", "CSD", "CSR", "CPQ", "CPD", "CPR", "CPG",
	"LSQ", "LSD", "LSR", "LPQ", "LPD", "LPR", "LPG",
	"ZTH", "YTH", "RX", "GB", "DCR",
}

func (f Function) String() string {
	if f < 0 || int(f) >= len(functionNames) {
		return fmt.Sprintf("Function(%d)", int(f))
	}
	return functionNames[f]
}

// Speed selects the measurement speed (MEASurement:SPEED).
type Speed int

const (
	SpeedSlow Speed = 1
	SpeedFast Speed = 2
)

// Range selects the measurement range mode (MEASurement:RANGe).
type Range int

const (
	RangeHold Range = 0
	RangeAuto Range = 1
)

// CalStatus is the result of a CALibrate:BUSY? query.
type CalStatus int

const (
	CalFail CalStatus = -1
	CalDone CalStatus = 0
	CalBusy CalStatus = 1
)

// Test frequency bounds in Hz.
const (
	MinFrequency = 20
	MaxFrequency = 300000
)

// Meter is a connected 891.
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

// Calibrate subsystem.

// CalibrateOpen starts the open-circuit calibration routine.
func (m *Meter) CalibrateOpen(ctx context.Context) error {
	return m.conn.Send(ctx, "CALibrate:OPEN")
}

// CalibrateShort starts the short-circuit calibration routine.
func (m *Meter) CalibrateShort(ctx context.Context) error {
	return m.conn.Send(ctx, "CALibrate:SHORt")
}

// CalibrationStatus reports the state of a running calibration:
// CalDone, CalBusy, or CalFail.
func (m *Meter) CalibrationStatus(ctx context.Context) (CalStatus, error) {
	vals, err := m.conn.Query(ctx, "CALibrate:BUSY?")
	if err != nil {
		return 0, err
	}
	n, err := vals.IntAt(0)
	if err != nil {
		return 0, err
	}
	return CalStatus(n), nil
}

// Display subsystem.

// SetDisplayFont sets the display font to large or normal.
func (m *Meter) SetDisplayFont(ctx context.Context, large bool) error {
	return m.conn.Send(ctx, fmt.Sprintf("DISPlay:FONT %d", boolInt(large)))
}

// DisplayFont reports whether the large display font is active.
func (m *Meter) DisplayFont(ctx context.Context) (large bool, err error) {
	return m.intFlag(ctx, "DISPlay:FONT?")
}

// SetDisplayMode sets the number display mode to scientific or
// decimal.
func (m *Meter) SetDisplayMode(ctx context.Context, scientific bool) error {
	return m.conn.Send(ctx, fmt.Sprintf("DISPlay:MODE %d", boolInt(scientific)))
}

// DisplayMode reports whether scientific number display is active.
func (m *Meter) DisplayMode(ctx context.Context) (scientific bool, err error) {
	return m.intFlag(ctx, "DISPlay:MODE?")
}

// SetDisplayPage selects the display page: 0 bin, 1 measurement,
// 2 sweep, 3 system.
func (m *Meter) SetDisplayPage(ctx context.Context, page int) error {
	if page < 0 || page > 3 {
		return fmt.Errorf("display page %d (valid: 0-3): %w", page, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("DISPlay:PAGE %d", page))
}

// DisplayPage returns the current display page: 0 bin, 1 measurement,
// 2 sweep, 3 system.
func (m *Meter) DisplayPage(ctx context.Context) (int, error) {
	return m.intValue(ctx, "DISPlay:PAGE?")
}

// Fetch subsystem.

// Fetch returns the primary and secondary result currently measured by
// the device.
func (m *Meter) Fetch(ctx context.Context) (scpi.Values, error) {
	return m.conn.Query(ctx, "FETCh?")
}

// Format subsystem.

// SetFormat sets the number format: binary (numbers only) or ASCII
// (with units).
func (m *Meter) SetFormat(ctx context.Context, binary bool) error {
	return m.conn.Send(ctx, fmt.Sprintf("FORMat %d", boolInt(binary)))
}

// Format returns the number format: "ASCii" or "REAL".
func (m *Meter) Format(ctx context.Context) (string, error) {
	vals, err := m.conn.Query(ctx, "FORMat?")
	if err != nil {
		return "", err
	}
	return vals.StringAt(0)
}

// Frequency subsystem.

// SetFrequency sets the test frequency in Hz. The 891 accepts 20 Hz
// through 300 kHz.
func (m *Meter) SetFrequency(ctx context.Context, hz float64) error {
	if hz < MinFrequency || hz > MaxFrequency {
		return fmt.Errorf("frequency %g Hz (valid: %d-%d): %w",
			hz, MinFrequency, MaxFrequency, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("FREQuency %g", hz))
}

// Frequency returns the current test frequency setting in Hz.
func (m *Meter) Frequency(ctx context.Context) (float64, error) {
	vals, err := m.conn.Query(ctx, "FREQuency?")
	if err != nil {
		return 0, err
	}
	return vals.FloatAt(0)
}

// Level subsystem.

// SetACLevel sets the test signal level. Allowed values are 0.5 and
// 1.0 (volts RMS).
func (m *Meter) SetACLevel(ctx context.Context, level float64) error {
	if level != 0.5 && level != 1.0 {
		return fmt.Errorf("AC level %g (valid: 0.5, 1.0): %w", level, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("LEVel:AC %g", level))
}

// ACLevel returns the test signal level.
func (m *Meter) ACLevel(ctx context.Context) (float64, error) {
	vals, err := m.conn.Query(ctx, "LEVel:AC?")
	if err != nil {
		return 0, err
	}
	return vals.FloatAt(0)
}

// Measurement subsystem.

// SetFunction selects the measurement function.
func (m *Meter) SetFunction(ctx context.Context, f Function) error {
	if f < FuncCsQ || f > FuncDCR {
		return fmt.Errorf("measurement function %d: %w", int(f), meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("MEASurement:FUNCtion %d", int(f)))
}

// MeasurementFunction returns the selected measurement function.
func (m *Meter) MeasurementFunction(ctx context.Context) (Function, error) {
	n, err := m.intValue(ctx, "MEASurement:FUNCtion?")
	if err != nil {
		return 0, err
	}
	return Function(n), nil
}

// SetSpeed sets the measurement speed to fast or slow.
func (m *Meter) SetSpeed(ctx context.Context, s Speed) error {
	if s != SpeedSlow && s != SpeedFast {
		return fmt.Errorf("measurement speed %d: %w", int(s), meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("MEASurement:SPEED %d", int(s)))
}

// MeasurementSpeed returns the measurement speed.
func (m *Meter) MeasurementSpeed(ctx context.Context) (Speed, error) {
	n, err := m.intValue(ctx, "MEASurement:SPEED?")
	if err != nil {
		return 0, err
	}
	return Speed(n), nil
}

// SetRange sets the measurement range mode to AUTO or HOLD.
func (m *Meter) SetRange(ctx context.Context, r Range) error {
	if r != RangeHold && r != RangeAuto {
		return fmt.Errorf("measurement range %d: %w", int(r), meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("MEASurement:RANGe %d", int(r)))
}

// MeasurementRange returns the measurement range mode.
func (m *Meter) MeasurementRange(ctx context.Context) (Range, error) {
	n, err := m.intValue(ctx, "MEASurement:RANGe?")
	if err != nil {
		return 0, err
	}
	return Range(n), nil
}

// System subsystem.

// SetBrightness sets the screen brightness, 0 through 9.
func (m *Meter) SetBrightness(ctx context.Context, level int) error {
	if level < 0 || level > 9 {
		return fmt.Errorf("brightness %d (valid: 0-9): %w", level, meter.ErrInvalidParam)
	}
	return m.conn.Send(ctx, fmt.Sprintf("SYStem:BRIGhtness %d", level))
}

// Brightness returns the screen brightness.
func (m *Meter) Brightness(ctx context.Context) (int, error) {
	return m.intValue(ctx, "SYStem:BRIGhtness?")
}

// SetBeeper enables or disables the beeper.
func (m *Meter) SetBeeper(ctx context.Context, on bool) error {
	return m.conn.Send(ctx, "SYStem:BEEPer "+scpi.OnOff(on))
}

// Beeper reports whether the beeper is enabled.
func (m *Meter) Beeper(ctx context.Context) (bool, error) {
	vals, err := m.conn.Query(ctx, "SYStem:BEEPer?")
	if err != nil {
		return false, err
	}
	return vals.BoolAt(0)
}

// SetDate sets the instrument date from the date portion of t.
func (m *Meter) SetDate(ctx context.Context, t time.Time) error {
	year, month, day := t.Date()
	return m.conn.Send(ctx, fmt.Sprintf("SYStem:DATE %d,%d,%d", year, int(month), day))
}

// Date returns the instrument date.
func (m *Meter) Date(ctx context.Context) (year, month, day int, err error) {
	return m.intTriple(ctx, "SYStem:DATE?")
}

// SetTime sets the instrument clock from the time portion of t.
func (m *Meter) SetTime(ctx context.Context, t time.Time) error {
	hour, minute, second := t.Clock()
	return m.conn.Send(ctx, fmt.Sprintf("SYStem:TIME %d,%d,%d", hour, minute, second))
}

// Time returns the instrument clock.
func (m *Meter) Time(ctx context.Context) (hour, minute, second int, err error) {
	return m.intTriple(ctx, "SYStem:TIME?")
}

// SystemError pops the first element of the instrument error stack.
func (m *Meter) SystemError(ctx context.Context) (code int64, message string, err error) {
	vals, err := m.conn.Query(ctx, "SYStem:ERRor?")
	if err != nil {
		return 0, "", err
	}
	code, err = vals.IntAt(0)
	if err != nil {
		return 0, "", err
	}
	if len(vals) > 1 {
		message = vals[1].String()
	}
	return code, message, nil
}

// IEEE 488.2 commands.

// Identify returns the instrument identification containing the model,
// firmware version, and serial number.
func (m *Meter) Identify(ctx context.Context) (meter.Identity, error) {
	vals, err := m.conn.Query(ctx, "*IDN?")
	if err != nil {
		return meter.Identity{}, err
	}
	return meter.ParseIdentity(vals), nil
}

// Clear sends *CLS, clearing the instrument status registers.
func (m *Meter) Clear(ctx context.Context) error {
	return m.conn.Send(ctx, "*CLS")
}

// Reset resets the instrument.
func (m *Meter) Reset(ctx context.Context) error {
	return m.conn.Send(ctx, "*RST")
}

// SaveConfiguration saves the current configuration to the numbered
// memory slot.
func (m *Meter) SaveConfiguration(ctx context.Context, slot int) error {
	return m.conn.Send(ctx, fmt.Sprintf("*SAV %d", slot))
}

// RecallConfiguration recalls a configuration from the numbered memory
// slot.
func (m *Meter) RecallConfiguration(ctx context.Context, slot int) error {
	return m.conn.Send(ctx, fmt.Sprintf("*RCL %d", slot))
}

func (m *Meter) intValue(ctx context.Context, cmd string) (int, error) {
	vals, err := m.conn.Query(ctx, cmd)
	if err != nil {
		return 0, err
	}
	n, err := vals.IntAt(0)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (m *Meter) intFlag(ctx context.Context, cmd string) (bool, error) {
	n, err := m.intValue(ctx, cmd)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (m *Meter) intTriple(ctx context.Context, cmd string) (int, int, int, error) {
	vals, err := m.conn.Query(ctx, cmd)
	if err != nil {
		return 0, 0, 0, err
	}
	var out [3]int
	for i := range out {
		n, err := vals.IntAt(i)
		if err != nil {
			return 0, 0, 0, err
		}
		out[i] = int(n)
	}
	return out[0], out[1], out[2], nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
