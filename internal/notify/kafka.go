package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reunion/internal/platform/kafka"
	id "reunion/pkg/domain"
)

// wireMessage is the JSON shape handed to the delivery worker. Rendering
// and transport selection happen downstream.
type wireMessage struct {
	Recipient string  `json:"recipient"`
	Template  string  `json:"template"`
	Payload   Payload `json:"payload,omitempty"`
	QueuedAt  string  `json:"queued_at"`
}

// KafkaNotifier hands messages to the delivery pipeline via a Kafka topic,
// keyed by recipient so one member's messages stay ordered.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	clock    func() time.Time
}

func NewKafkaNotifier(producer *kafka.Producer, topic string) (*KafkaNotifier, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}
	return &KafkaNotifier{producer: producer, topic: topic, clock: time.Now}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, recipient id.MemberID, kind TemplateKind, payload Payload) error {
	value, err := json.Marshal(wireMessage{
		Recipient: recipient.String(),
		Template:  string(kind),
		Payload:   payload,
		QueuedAt:  n.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.producer.Produce(ctx, n.topic, []byte(recipient.String()), value)
}
