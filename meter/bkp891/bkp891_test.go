package bkp891_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/meter/bkp891"
)

func newTestMeter() (*bkp891.Meter, *meter.TestTransport) {
	transport := meter.NewTestTransport()
	conn := meter.NewConn(transport, meter.Config{SettleDelay: time.Millisecond})
	return bkp891.New(conn), transport
}

func TestSetterCommands(t *testing.T) {
	tests := []struct {
		name     string
		call     func(ctx context.Context, m *bkp891.Meter) error
		expected string
	}{
		{
			name:     "CalibrateOpen",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.CalibrateOpen(ctx) },
			expected: "CALibrate:OPEN",
		},
		{
			name:     "CalibrateShort",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.CalibrateShort(ctx) },
			expected: "CALibrate:SHORt",
		},
		{
			name:     "SetDisplayFont large",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetDisplayFont(ctx, true) },
			expected: "DISPlay:FONT 1",
		},
		{
			name:     "SetDisplayMode decimal",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetDisplayMode(ctx, false) },
			expected: "DISPlay:MODE 0",
		},
		{
			name:     "SetDisplayPage",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetDisplayPage(ctx, 2) },
			expected: "DISPlay:PAGE 2",
		},
		{
			name:     "SetFormat binary",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetFormat(ctx, true) },
			expected: "FORMat 1",
		},
		{
			name:     "SetFrequency integral",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetFrequency(ctx, 1000) },
			expected: "FREQuency 1000",
		},
		{
			name:     "SetFrequency fractional",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetFrequency(ctx, 100.5) },
			expected: "FREQuency 100.5",
		},
		{
			name:     "SetACLevel",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetACLevel(ctx, 0.5) },
			expected: "LEVel:AC 0.5",
		},
		{
			name:     "SetFunction",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetFunction(ctx, bkp891.FuncRX) },
			expected: "MEASurement:FUNCtion 16",
		},
		{
			name:     "SetSpeed fast",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetSpeed(ctx, bkp891.SpeedFast) },
			expected: "MEASurement:SPEED 2",
		},
		{
			name:     "SetRange auto",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetRange(ctx, bkp891.RangeAuto) },
			expected: "MEASurement:RANGe 1",
		},
		{
			name:     "SetBrightness",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetBrightness(ctx, 7) },
			expected: "SYStem:BRIGhtness 7",
		},
		{
			name:     "SetBeeper off",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SetBeeper(ctx, false) },
			expected: "SYStem:BEEPer OFF",
		},
		{
			name: "SetDate",
			call: func(ctx context.Context, m *bkp891.Meter) error {
				return m.SetDate(ctx, time.Date(2020, time.March, 7, 0, 0, 0, 0, time.UTC))
			},
			expected: "SYStem:DATE 2020,3,7",
		},
		{
			name: "SetTime",
			call: func(ctx context.Context, m *bkp891.Meter) error {
				return m.SetTime(ctx, time.Date(2020, time.March, 7, 14, 5, 9, 0, time.UTC))
			},
			expected: "SYStem:TIME 14,5,9",
		},
		{
			name:     "Clear",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.Clear(ctx) },
			expected: "*CLS",
		},
		{
			name:     "Reset",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.Reset(ctx) },
			expected: "*RST",
		},
		{
			name:     "SaveConfiguration",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.SaveConfiguration(ctx, 3) },
			expected: "*SAV 3",
		},
		{
			name:     "RecallConfiguration",
			call:     func(ctx context.Context, m *bkp891.Meter) error { return m.RecallConfiguration(ctx, 1) },
			expected: "*RCL 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, transport := newTestMeter()
			defer m.Close()

			if err := tt.call(context.Background(), m); err != nil {
				t.Fatalf("call error: %v", err)
			}

			cmds := transport.Commands()
			if len(cmds) != 1 || cmds[0] != tt.expected {
				t.Errorf("wire commands = %v, want [%q]", cmds, tt.expected)
			}
		})
	}
}

func TestParameterValidation(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, m *bkp891.Meter) error
	}{
		{
			name: "frequency below range",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetFrequency(ctx, 10) },
		},
		{
			name: "frequency above range",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetFrequency(ctx, 300001) },
		},
		{
			name: "bad AC level",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetACLevel(ctx, 0.7) },
		},
		{
			name: "display page out of range",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetDisplayPage(ctx, 4) },
		},
		{
			name: "brightness out of range",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetBrightness(ctx, 10) },
		},
		{
			name: "function out of range",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetFunction(ctx, bkp891.FuncDCR+1) },
		},
		{
			name: "bad speed",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetSpeed(ctx, 3) },
		},
		{
			name: "bad range mode",
			call: func(ctx context.Context, m *bkp891.Meter) error { return m.SetRange(ctx, 2) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, transport := newTestMeter()
			defer m.Close()

			err := tt.call(context.Background(), m)
			if !errors.Is(err, meter.ErrInvalidParam) {
				t.Errorf("expected ErrInvalidParam, got: %v", err)
			}
			if cmds := transport.Commands(); len(cmds) != 0 {
				t.Errorf("invalid parameter reached the wire: %v", cmds)
			}
		})
	}
}

func TestQueryGetters(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("+1.234567e+03,-5.67890e-02\r\n")

		vals, err := m.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if cmds := transport.Commands(); len(cmds) != 1 || cmds[0] != "FETCh?" {
			t.Errorf("wire commands = %v", cmds)
		}
		if primary, err := vals.FloatAt(0); err != nil || primary != 1234.567 {
			t.Errorf("primary = %v, %v", primary, err)
		}
	})

	t.Run("CalibrationStatus busy", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("1\r\n")

		status, err := m.CalibrationStatus(ctx)
		if err != nil || status != bkp891.CalBusy {
			t.Errorf("CalibrationStatus = %v, %v", status, err)
		}
	})

	t.Run("CalibrationStatus fail", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("-1\r\n")

		status, err := m.CalibrationStatus(ctx)
		if err != nil || status != bkp891.CalFail {
			t.Errorf("CalibrationStatus = %v, %v", status, err)
		}
	})

	t.Run("DisplayFont", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("1\r\n")

		large, err := m.DisplayFont(ctx)
		if err != nil || !large {
			t.Errorf("DisplayFont = %v, %v", large, err)
		}
	})

	t.Run("Frequency coerces int reply", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("1000\r\n")

		hz, err := m.Frequency(ctx)
		if err != nil || hz != 1000 {
			t.Errorf("Frequency = %v, %v", hz, err)
		}
	})

	t.Run("MeasurementFunction", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("16\r\n")

		f, err := m.MeasurementFunction(ctx)
		if err != nil || f != bkp891.FuncRX {
			t.Errorf("MeasurementFunction = %v, %v", f, err)
		}
		if f.String() != "RX" {
			t.Errorf("Function name = %q, want RX", f.String())
		}
	})

	t.Run("Beeper", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("OFF\r\n")

		on, err := m.Beeper(ctx)
		if err != nil || on {
			t.Errorf("Beeper = %v, %v", on, err)
		}
	})

	t.Run("Date", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("2020,3,7\r\n")

		year, month, day, err := m.Date(ctx)
		if err != nil || year != 2020 || month != 3 || day != 7 {
			t.Errorf("Date = %d-%d-%d, %v", year, month, day, err)
		}
	})

	t.Run("SystemError", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("0,\"No error\"\r\n")

		code, message, err := m.SystemError(ctx)
		if err != nil || code != 0 || message != "\"No error\"" {
			t.Errorf("SystemError = %d, %q, %v", code, message, err)
		}
	})

	t.Run("Identify", func(t *testing.T) {
		m, transport := newTestMeter()
		defer m.Close()
		transport.SendData("B&K Precision,891,468L20107,1.25\r\n")

		id, err := m.Identify(ctx)
		if err != nil {
			t.Fatalf("Identify error: %v", err)
		}
		if id.Model != "891" || id.Serial != "468L20107" {
			t.Errorf("Identify = %+v", id)
		}
	})
}
