package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// Model selects the connected meter: "879b" (also 878b) or "891"
	Model string
	// SerialPort is the path to the meter's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the meter.
	// The meters ship at 9600.
	BaudRate int
	// SettleDelayMs is the pause between a command and its response read
	SettleDelayMs int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// MQTTBroker enables reading publication when set (e.g. "tcp://localhost:1883")
	MQTTBroker string
	// MQTTClientID identifies this gateway to the broker
	MQTTClientID string
	// MQTTTopic is the topic readings are published to
	MQTTTopic string
	// MQTTUsername and MQTTPassword are optional broker credentials
	MQTTUsername string
	MQTTPassword string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if config.Model != "879b" && config.Model != "878b" && config.Model != "891" {
		return nil, fmt.Errorf("unsupported meter model %q (valid: 878b, 879b, 891)", config.Model)
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.Model = "879b"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.SettleDelayMs = 150
		c.LogLevel = "info"
		c.MQTTClientID = "lcr-gw"
		c.MQTTTopic = "lcr/readings"
		return nil
	}
}

// WithFile layers values from a TOML config file. An empty path is a
// no-op so the flag can stay optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		var file struct {
			BindAddress   string `toml:"bind_address"`
			Model         string `toml:"model"`
			SerialPort    string `toml:"serial_port"`
			BaudRate      int    `toml:"baud_rate"`
			SettleDelayMs int    `toml:"settle_delay_ms"`
			LogLevel      string `toml:"log_level"`
			MQTTBroker    string `toml:"mqtt_broker"`
			MQTTClientID  string `toml:"mqtt_client_id"`
			MQTTTopic     string `toml:"mqtt_topic"`
			MQTTUsername  string `toml:"mqtt_username"`
			MQTTPassword  string `toml:"mqtt_password"`
		}

		if _, err := toml.DecodeFile(path, &file); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}

		if file.BindAddress != "" {
			c.BindAddress = file.BindAddress
		}
		if file.Model != "" {
			c.Model = file.Model
		}
		if file.SerialPort != "" {
			c.SerialPort = file.SerialPort
		}
		if file.BaudRate != 0 {
			c.BaudRate = file.BaudRate
		}
		if file.SettleDelayMs != 0 {
			c.SettleDelayMs = file.SettleDelayMs
		}
		if file.LogLevel != "" {
			c.LogLevel = file.LogLevel
		}
		if file.MQTTBroker != "" {
			c.MQTTBroker = file.MQTTBroker
		}
		if file.MQTTClientID != "" {
			c.MQTTClientID = file.MQTTClientID
		}
		if file.MQTTTopic != "" {
			c.MQTTTopic = file.MQTTTopic
		}
		if file.MQTTUsername != "" {
			c.MQTTUsername = file.MQTTUsername
		}
		if file.MQTTPassword != "" {
			c.MQTTPassword = file.MQTTPassword
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if model := os.Getenv("METER_MODEL"); model != "" {
			c.Model = model
		}

		if port := os.Getenv("SERIAL_PORT"); port != "" {
			c.SerialPort = port
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if settle := os.Getenv("SETTLE_DELAY_MS"); settle != "" {
			if s, err := strconv.Atoi(settle); err == nil {
				c.SettleDelayMs = s
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}
		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}
		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
		}
		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MQTTPassword = pass
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "model":
				c.Model = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "settle-delay-ms":
				if s, err := strconv.Atoi(f.Value.String()); err == nil {
					c.SettleDelayMs = s
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			}

		})
		return nil
	}

}
