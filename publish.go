package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	connectTimeout     = 10 * time.Second
	connectWaitTimeout = 15 * time.Second
)

// Publisher pushes meter readings to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the broker named in the config and returns
// a ready publisher.
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker).
		SetClientID(config.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	if config.MQTTUsername != "" {
		opts.SetUsername(config.MQTTUsername)
		opts.SetPassword(config.MQTTPassword)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectWaitTimeout) {
		// Tear the client down so its network goroutines don't keep
		// retrying a broker we already gave up on.
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to MQTT broker %s: timeout", config.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", config.MQTTBroker, err)
	}

	return &Publisher{
		client: client,
		topic:  config.MQTTTopic,
		logger: logger,
	}, nil
}

// Publish sends one reading to the configured topic, fire-and-forget
// at QoS 0.
func (p *Publisher) Publish(reading *ReadingPayload) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages a
// short grace period.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
