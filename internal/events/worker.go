package events

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Worker consumes audit events from a channel and persists them. Sink
// failures are logged and dropped; the trail must never stall the engine.
type Worker struct {
	sink  Sink
	inbox <-chan Event
	log   *log.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, log *log.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if event.ID == "" {
				event.ID = uuid.NewString()
			}
			if event.At.IsZero() {
				event.At = time.Now()
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.log.Printf("events: append %s/%s: %v", event.UserID, event.Collection, err)
			}
		}
	}
}
