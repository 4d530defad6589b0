//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"reunion/internal/audit"
	"reunion/internal/platform/kafka"
	id "reunion/pkg/domain"
	"reunion/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	broker   string
	producer *kafka.Producer
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.broker = mgr.GetRedpanda(s.T()).Broker

	var err error
	s.producer, err = kafka.NewProducer([]string{s.broker}, nil)
	s.Require().NoError(err)
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

// TestPublish round-trips one entry through a real broker and checks the
// wire shape a downstream consumer would see.
func (s *KafkaPublisherSuite) TestPublish() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "reunion.audit.test"
	s.Require().NoError(s.producer.EnsureTopic(ctx, topic))
	// Re-ensuring an existing topic must be a no-op.
	s.Require().NoError(s.producer.EnsureTopic(ctx, topic))

	publisher, err := audit.NewKafkaPublisher(s.producer, topic)
	s.Require().NoError(err)

	actor := id.NewMemberID()
	entry := &audit.Entry{
		ID:               id.NewEntryID(),
		ActorID:          &actor,
		Action:           audit.ActionExport,
		ResourceType:     audit.ResourceAudit,
		Detail:           audit.ExportDetail{Format: "csv", RowCount: 12},
		ActorIP:          "203.0.113.4",
		AgentSummary:     "Firefox 141.0 on Linux x86_64",
		RequiresApproval: true,
		ApprovalStatus:   audit.ApprovalPending,
		CreatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(publisher.Publish(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal(entry.ID.String(), string(records[0].Key))

	var wire struct {
		ID               string          `json:"id"`
		ActorID          string          `json:"actor_id"`
		Action           string          `json:"action"`
		ResourceType     string          `json:"resource_type"`
		Detail           json.RawMessage `json:"detail"`
		RequiresApproval bool            `json:"requires_approval"`
		ApprovalStatus   string          `json:"approval_status"`
	}
	s.Require().NoError(json.Unmarshal(records[0].Value, &wire))
	s.Equal(entry.ID.String(), wire.ID)
	s.Equal(actor.String(), wire.ActorID)
	s.Equal("EXPORT", wire.Action)
	s.Equal("audit_entry", wire.ResourceType)
	s.True(wire.RequiresApproval)
	s.Equal("PENDING", wire.ApprovalStatus)

	detail, err := audit.DecodeDetail(wire.Detail)
	s.Require().NoError(err)
	export, ok := detail.(audit.ExportDetail)
	s.Require().True(ok)
	s.Equal(12, export.RowCount)
}
