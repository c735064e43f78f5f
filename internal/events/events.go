// Package events carries the sync audit trail: one compact event per
// attempted remote write, fed through a channel worker into a sink (Kafka in
// production, memory in tests). The trail is observability only; losing an
// event never blocks or fails a sync.
package events

import (
	"context"
	"time"
)

// Outcome values for sync write attempts.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Event records one debounced sync write.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Collection string    `json:"collection"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	Device     string    `json:"device,omitempty"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
