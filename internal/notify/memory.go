package notify

import (
	"context"
	"sync"

	id "reunion/pkg/domain"
)

// Recorder is an in-memory Notifier for tests and local runs. It records
// every delivery and can be told to fail.
type Recorder struct {
	mu        sync.Mutex
	delivered []Outcome

	// FailWith, when set, is returned from every Notify call.
	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, recipient id.MemberID, kind TemplateKind, _ Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, Outcome{Recipient: recipient, Kind: kind, Err: r.FailWith})
	return r.FailWith
}

// Deliveries returns a copy of every recorded delivery attempt.
func (r *Recorder) Deliveries() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome{}, r.delivered...)
}
