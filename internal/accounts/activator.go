// Package accounts emits account lifecycle intents to the membership
// service, which owns the account state machine. The verification workflow
// only signals that a member passed review.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"reunion/internal/platform/kafka"
	id "reunion/pkg/domain"
)

type activationIntent struct {
	MemberID string `json:"member_id"`
	Action   string `json:"action"`
	At       string `json:"at"`
}

// KafkaActivator publishes activation intents, keyed by member so repeated
// intents for one member stay ordered.
type KafkaActivator struct {
	producer *kafka.Producer
	topic    string
	clock    func() time.Time
}

func NewKafkaActivator(producer *kafka.Producer, topic string) (*KafkaActivator, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("accounts topic is required")
	}
	return &KafkaActivator{producer: producer, topic: topic, clock: time.Now}, nil
}

func (a *KafkaActivator) Activate(ctx context.Context, memberID id.MemberID) error {
	value, err := json.Marshal(activationIntent{
		MemberID: memberID.String(),
		Action:   "ACTIVATE",
		At:       a.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal activation intent: %w", err)
	}
	return a.producer.Produce(ctx, a.topic, []byte(memberID.String()), value)
}

// LogActivator records intents in the log for deployments without a broker.
// The membership service reconciles from the audit trail in that mode.
type LogActivator struct {
	logger *slog.Logger
}

func NewLogActivator(logger *slog.Logger) *LogActivator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogActivator{logger: logger}
}

func (a *LogActivator) Activate(ctx context.Context, memberID id.MemberID) error {
	a.logger.InfoContext(ctx, "account activation intent", "member_id", memberID.String())
	return nil
}
