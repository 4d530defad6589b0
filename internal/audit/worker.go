package audit

import (
	"context"
	"log/slog"
)

// Worker drains the fan-out channel and mirrors each entry to the
// publisher. It keeps publishing off the Record hot path; a publish
// failure is logged and the entry stays available in the durable store.
type Worker struct {
	publisher Publisher
	inbox     <-chan *Entry
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan *Entry, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.publisher.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit entry publish failed",
					"entry_id", entry.ID.String(),
					"error", err.Error(),
				)
			}
		}
	}
}
