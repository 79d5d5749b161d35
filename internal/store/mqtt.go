package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/clinic-auth/internal/infrastructure/mqtt"
)

// Broker is the part of *mqtt.Client the notifier uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTNotifier carries Changes between processes over an MQTT broker.
// Each Change is published as JSON on topics.RecordChanged(record).
// One notifier supports a single Listen call.
type MQTTNotifier struct {
	broker Broker
	topics mqtt.Topics
	qos    byte
}

// NewMQTTNotifier returns a notifier publishing under topics.
func NewMQTTNotifier(broker Broker, topics mqtt.Topics, qos byte) *MQTTNotifier {
	return &MQTTNotifier{broker: broker, topics: topics, qos: qos}
}

func (n *MQTTNotifier) Notify(_ context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	return n.broker.Publish(n.topics.RecordChanged(c.Record), payload, n.qos, false)
}

func (n *MQTTNotifier) Listen(fn func(Change)) (func(), error) {
	topic := n.topics.AllRecordChanges()
	err := n.broker.Subscribe(topic, n.qos, func(topic string, payload []byte) error {
		var c Change
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("decoding change on %s: %w", topic, err)
		}
		fn(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		_ = n.broker.Unsubscribe(topic) //nolint:errcheck // best effort on shutdown
	}, nil
}
