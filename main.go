// Command lcr-gw exposes a B&K Precision LCR meter (878B/879B or 891)
// over HTTP, with optional MQTT publication of streamed readings.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.bug.st/serial"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/meter/bkp879b"
	"github.com/argart/bklcr/meter/bkp891"
)

func main() {
	flag.String("model", "879b", "Meter model: 878b, 879b, or 891")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the meter is connected to")
	flag.Int("baud-rate", 9600, "Baud rate for serial communication")
	flag.Int("settle-delay-ms", 150, "Delay between a command and its response read")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("mqtt-broker", "", "MQTT broker URL; enables reading publication when set")
	flag.String("mqtt-client-id", "lcr-gw", "MQTT client ID")
	flag.String("mqtt-topic", "lcr/readings", "MQTT topic readings are published to")
	configPath := flag.String("config", "", "Path to a TOML config file")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	meterConfig, err := meter.NewConfigBuilder().
		WithSettleDelay(time.Duration(config.SettleDelayMs) * time.Millisecond).
		WithDialer(meter.SerialDialer{
			PortName: config.SerialPort,
			Mode: &serial.Mode{
				BaudRate: config.BaudRate,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			},
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create meter config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		instrument Meter
		streamer   *bkp879b.Meter
	)
	switch config.Model {
	case "878b", "879b":
		m, err := bkp879b.Dial(ctx, meterConfig)
		if err != nil {
			logger.Error("Failed to connect to meter", "model", config.Model, "error", err)
			os.Exit(1)
		}
		instrument = meter879b{m}
		streamer = m
	case "891":
		m, err := bkp891.Dial(ctx, meterConfig)
		if err != nil {
			logger.Error("Failed to connect to meter", "model", config.Model, "error", err)
			os.Exit(1)
		}
		instrument = m
	}

	var identity *meter.Identity
	id, err := instrument.Identify(ctx)
	if err != nil {
		logger.Warn("Instrument identification failed", "error", err)
	} else {
		identity = &id
		logger.Info("Connected to meter", "manufacturer", id.Manufacturer,
			"model", id.Model, "serial", id.Serial, "firmware", id.Firmware)
	}

	metrics := NewMetrics(prometheus.DefaultRegisterer)

	streaming := config.MQTTBroker != "" && streamer != nil
	server := &Server{
		Logger:    logger.With("component", "server"),
		Meter:     instrument,
		Metrics:   metrics,
		Streaming: streaming,
		Identity:  identity,
	}

	if config.MQTTBroker != "" && streamer == nil {
		logger.Warn("MQTT publishing requires the streaming fetch mode of the 878B/879B; ignoring broker setting",
			"model", config.Model)
	}

	if streaming {
		publisher, err := NewPublisher(config, logger.With("component", "publisher"))
		if err != nil {
			logger.Error("Failed to connect publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		readings, err := streamer.AutoFetch(ctx, 0)
		if err != nil {
			logger.Error("Failed to start reading stream", "error", err)
			os.Exit(1)
		}

		go func() {
			for r := range readings {
				if r.Err != nil {
					logger.Error("Reading stream failed", "error", r.Err)
					metrics.CommandErrors.Inc()
					return
				}
				metrics.Readings.Inc()

				payload := &ReadingPayload{Values: r.Values, At: time.Now().UTC()}
				server.SetLatest(payload)

				if err := publisher.Publish(payload); err != nil {
					logger.Error("Publish failed", "error", err)
					continue
				}
				metrics.Published.Inc()
			}
		}()
		logger.Info("Streaming readings to MQTT", "broker", config.MQTTBroker, "topic", config.MQTTTopic)
	}

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: server,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())

	cancel()

	logger.Info("Closing meter connection")
	if err := instrument.Close(); err != nil {
		logger.Error("Failed to close meter", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// meter879b adapts the 879B driver's integer-valued frequency setter
// onto the gateway Meter interface.
type meter879b struct {
	*bkp879b.Meter
}

func (m meter879b) SetFrequency(ctx context.Context, hz float64) error {
	return m.Meter.SetFrequency(ctx, int(hz))
}

var (
	_ Meter = meter879b{}
	_ Meter = (*bkp891.Meter)(nil)
)
