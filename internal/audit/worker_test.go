package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "reunion/pkg/domain"
)

// =============================================================================
// Fan-out Worker Test Suite
// =============================================================================

type WorkerSuite struct {
	suite.Suite
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) TestRun() {
	s.Run("drains the inbox into the publisher", func() {
		inbox := make(chan *Entry, 8)
		publisher := NewMemoryPublisher()
		worker := NewWorker(publisher, inbox, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- worker.Run(ctx) }()

		want := []id.EntryID{id.NewEntryID(), id.NewEntryID(), id.NewEntryID()}
		for _, entryID := range want {
			inbox <- &Entry{ID: entryID, Action: ActionView, ResourceType: ResourceMember}
		}

		s.Eventually(func() bool {
			return len(publisher.Published()) == len(want)
		}, time.Second, 5*time.Millisecond)
		s.Equal(want, publisher.Published())

		cancel()
		s.ErrorIs(<-done, context.Canceled)
	})

	s.Run("closing the inbox drains buffered entries and stops", func() {
		inbox := make(chan *Entry, 8)
		publisher := NewMemoryPublisher()
		worker := NewWorker(publisher, inbox, nil)

		want := []id.EntryID{id.NewEntryID(), id.NewEntryID()}
		for _, entryID := range want {
			inbox <- &Entry{ID: entryID, Action: ActionView, ResourceType: ResourceMember}
		}
		close(inbox)

		done := make(chan error, 1)
		go func() { done <- worker.Run(context.Background()) }()

		s.NoError(<-done)
		s.Equal(want, publisher.Published())
	})
}
