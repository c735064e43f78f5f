package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/internal/platform/logger"
)

func TestWorker_PersistsEvents(t *testing.T) {
	sink := NewInMemorySink()
	inbox := make(chan Event, 4)
	worker := NewWorker(sink, inbox, logger.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	inbox <- Event{UserID: "u1", Collection: "baskets", Outcome: OutcomeOK}
	inbox <- Event{UserID: "u1", Collection: "favorites", Outcome: OutcomeError, Detail: "boom"}

	require.Eventually(t, func() bool {
		return len(sink.List()) == 2
	}, time.Second, 10*time.Millisecond)

	got := sink.List()
	assert.NotEmpty(t, got[0].ID, "worker assigns ids")
	assert.False(t, got[0].At.IsZero(), "worker assigns timestamps")
	assert.Equal(t, OutcomeOK, got[0].Outcome)
	assert.Equal(t, "favorites", got[1].Collection)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	worker := NewWorker(NewInMemorySink(), make(chan Event), logger.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
