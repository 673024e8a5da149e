package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // ms
	eventQoS                 = 1
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrPublishFailed    = errors.New("mqtt publish failed")
)

// MQTTConfig configures MQTTNotifier.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// MQTTNotifier publishes events as JSON to <prefix>/devices/registered.
type MQTTNotifier struct {
	client pahomqtt.Client
	prefix string
}

// NewMQTTNotifier connects to the broker and returns a ready notifier.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return newMQTTNotifier(client, cfg.TopicPrefix), nil
}

func newMQTTNotifier(client pahomqtt.Client, prefix string) *MQTTNotifier {
	return &MQTTNotifier{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// RegisteredTopic is the topic device registrations are published on.
func (n *MQTTNotifier) RegisteredTopic() string {
	if n.prefix == "" {
		return "devices/registered"
	}
	return n.prefix + "/devices/registered"
}

func (n *MQTTNotifier) DeviceRegistered(ctx context.Context, ev DeviceRegistered) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	timeout := defaultPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	token := n.client.Publish(n.RegisteredTopic(), eventQoS, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects, letting in-flight publishes finish.
func (n *MQTTNotifier) Close() error {
	if n.client.IsConnected() {
		n.client.Disconnect(defaultDisconnectQuiesce)
	}
	return nil
}
