package publish

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the broker connection and per-publish behavior.
type MQTTOptions struct {
	Broker   string // e.g. tcp://127.0.0.1:1883
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration // connect and per-publish bound; a timeout counts as a failed publish
}

// MQTT is a Publisher backed by an MQTT broker connection.
type MQTT struct {
	client mqtt.Client
	opts   MQTTOptions
}

// ConnectMQTT dials the broker and returns a connected publisher.
func ConnectMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.Timeout).
		SetAutoReconnect(false)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("connect %s: timeout after %s", opts.Broker, opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Broker, err)
	}
	return &MQTT{client: client, opts: opts}, nil
}

// Publish sends one payload under topic with the configured QoS and retain
// flag. Returns an error when the broker rejects the call, the configured
// timeout elapses, or ctx is done first.
func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	token := m.client.Publish(topic, m.opts.QoS, m.opts.Retain, payload)

	deadline := time.NewTimer(m.opts.Timeout)
	defer deadline.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-deadline.C:
		return fmt.Errorf("publish %s: timeout after %s", topic, m.opts.Timeout)
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
}

// Close disconnects from the broker, allowing in-flight work a short drain.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
