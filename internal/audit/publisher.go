package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"reunion/internal/platform/kafka"
	id "reunion/pkg/domain"
)

// Publisher mirrors persisted audit entries to an external sink for
// long-term retention and SIEM consumption. Delivery is best-effort; the
// durable store remains the source of truth.
type Publisher interface {
	Publish(ctx context.Context, entry *Entry) error
}

// wireEntry is the JSON shape published to Kafka. Kept separate from Entry
// so the wire format can evolve without touching storage.
type wireEntry struct {
	ID               string          `json:"id"`
	ActorID          string          `json:"actor_id,omitempty"`
	Action           string          `json:"action"`
	ResourceType     string          `json:"resource_type"`
	ResourceID       string          `json:"resource_id,omitempty"`
	Detail           json.RawMessage `json:"detail"`
	ActorIP          string          `json:"actor_ip,omitempty"`
	AgentSummary     string          `json:"agent_summary,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	ApprovalStatus   string          `json:"approval_status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// KafkaPublisher publishes entries to one audit topic, keyed by entry ID so
// per-entry ordering is stable under partitioning.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("audit topic is required")
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry *Entry) error {
	detail, err := EncodeDetail(entry.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}

	wire := wireEntry{
		ID:               entry.ID.String(),
		Action:           string(entry.Action),
		ResourceType:     string(entry.ResourceType),
		ResourceID:       entry.ResourceID,
		Detail:           detail,
		ActorIP:          entry.ActorIP,
		AgentSummary:     entry.AgentSummary,
		RequiresApproval: entry.RequiresApproval,
		ApprovalStatus:   string(entry.ApprovalStatus),
		CreatedAt:        entry.CreatedAt,
	}
	if entry.ActorID != nil {
		wire.ActorID = entry.ActorID.String()
	}

	value, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(entry.ID.String()), value)
}

// MemoryPublisher collects published entries for tests and local runs.
type MemoryPublisher struct {
	mu      sync.Mutex
	entries []id.EntryID
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, entry *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry.ID)
	return nil
}

// Published returns the IDs of every entry published so far.
func (p *MemoryPublisher) Published() []id.EntryID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]id.EntryID{}, p.entries...)
}
