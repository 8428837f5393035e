//go:build integration

package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	auditmemory "cinregistry/pkg/platform/audit/store/memory"
	"cinregistry/pkg/testutil/containers"
)

func TestRelayAgainstBroker(t *testing.T) {
	kafka := containers.Kafka(t)
	topic := "cinregistry.audit.it"
	kafka.CreateTopic(t, topic)

	producer, err := NewClient([]string{kafka.Broker}, topic)
	require.NoError(t, err)
	defer producer.Close()

	store := auditmemory.NewInMemoryStore()
	entries := seed(t, store, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := New(store, producer, topic).RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	pending, err := store.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafka.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	got := make(map[string]payload)
	for len(got) < len(entries) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err(), "timed out waiting for relayed entries")
		fetches.EachRecord(func(r *kgo.Record) {
			var p payload
			require.NoError(t, json.Unmarshal(r.Value, &p))
			got[string(r.Key)] = p
		})
	}
	for _, e := range entries {
		p, ok := got[e.ID.String()]
		require.True(t, ok, "entry %s not relayed", e.ID)
		assert.Equal(t, "cin_issued", p.Action)
		assert.Equal(t, "SLOR001", p.NewData["cin"])
	}
}
