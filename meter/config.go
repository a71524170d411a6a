package meter

import (
	"time"
)

// Config carries connection settings for an LCR meter.
type Config struct {
	// Dialer opens the transport. Required.
	Dialer Dialer
	// SettleDelay is slept between writing a command and reading its
	// response, so the meter does not error out when commands
	// immediately follow each other.
	SettleDelay time.Duration
	// MaxLineSize bounds a single response line.
	MaxLineSize int
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.SettleDelay == 0 {
		c.SettleDelay = 150 * time.Millisecond
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = 4096
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.SettleDelay = d
	return b
}

func (b *ConfigBuilder) WithMaxLineSize(n int) *ConfigBuilder {
	b.config.MaxLineSize = n
	return b
}

// Build validates the assembled Config and applies defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	config := b.config
	config.setDefaults()
	return config, nil
}
