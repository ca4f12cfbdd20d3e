package transport

import (
	"context"
	"fmt"

	"github.com/benmeehan/location-sender/internal/constants"
	"github.com/benmeehan/location-sender/pkg/mqtt"
)

// MQTTTransport publishes payloads to the ThingsBoard device telemetry topic.
// The broker authenticates the device by the token given as MQTT username.
type MQTTTransport struct {
	client mqtt.MQTTClient
	topic  string
	qos    byte
}

// NewMQTTTransport wraps a connected client.
func NewMQTTTransport(client mqtt.MQTTClient, qos int) *MQTTTransport {
	return &MQTTTransport{
		client: client,
		topic:  constants.TelemetryTopic,
		qos:    byte(qos),
	}
}

// Deliver publishes payload and waits for the broker to acknowledge it or for ctx to end.
func (t *MQTTTransport) Deliver(ctx context.Context, payload []byte) (*Response, error) {
	token := t.client.Publish(t.topic, t.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("publish to %s aborted: %w", t.topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to publish to %s: %w", t.topic, err)
	}

	return &Response{}, nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() error {
	t.client.Disconnect(250)
	return nil
}
