//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"offersync/internal/platform/config"
	"offersync/pkg/testutil/containers"
)

func TestKafkaSink_AppendRoundTrip(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	cfg := config.KafkaConfig{Brokers: []string{rp.Broker}, Topic: "offersync.sync-events.test"}
	sink, err := NewKafkaSink(cfg)
	require.NoError(t, err)
	require.NotNil(t, sink)
	defer sink.Close()

	want := Event{
		ID:         "evt-1",
		UserID:     "u1",
		Collection: "baskets",
		Outcome:    OutcomeOK,
		DurationMS: 12,
		At:         time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, sink.Append(ctx, want))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "u1", string(records[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Collection, got.Collection)
	require.Equal(t, want.Outcome, got.Outcome)
}
