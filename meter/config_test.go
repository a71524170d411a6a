package meter_test

import (
	"testing"
	"time"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/scpi"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := meter.NewConfigBuilder().Build()

		if err != meter.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		config, err := meter.NewConfigBuilder().
			WithDialer(meter.SerialDialer{PortName: "/dev/ttyUSB0"}).
			Build()
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}

		if config.SettleDelay != 150*time.Millisecond {
			t.Errorf("default settle delay = %v, want 150ms", config.SettleDelay)
		}
		if config.MaxLineSize != 4096 {
			t.Errorf("default max line size = %d, want 4096", config.MaxLineSize)
		}
	})

	t.Run("overrides kept", func(t *testing.T) {
		config, err := meter.NewConfigBuilder().
			WithDialer(meter.SerialDialer{PortName: "/dev/ttyUSB0"}).
			WithSettleDelay(50 * time.Millisecond).
			WithMaxLineSize(1024).
			Build()
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}

		if config.SettleDelay != 50*time.Millisecond {
			t.Errorf("settle delay = %v, want 50ms", config.SettleDelay)
		}
		if config.MaxLineSize != 1024 {
			t.Errorf("max line size = %d, want 1024", config.MaxLineSize)
		}
	})
}

func TestParseIdentity(t *testing.T) {
	id := meter.ParseIdentity(scpi.Parse("B&K Precision,891,468L20107,1.25"))

	want := meter.Identity{
		Manufacturer: "B&K Precision",
		Model:        "891",
		Serial:       "468L20107",
		Firmware:     "1.25",
	}
	if id != want {
		t.Errorf("identity = %+v, want %+v", id, want)
	}

	// Short lines leave trailing fields empty.
	short := meter.ParseIdentity(scpi.Parse("B&K Precision,879B"))
	if short.Manufacturer != "B&K Precision" || short.Model != "879B" ||
		short.Serial != "" || short.Firmware != "" {
		t.Errorf("short identity = %+v", short)
	}
}
