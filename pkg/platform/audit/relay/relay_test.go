package relay

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/mocks"
	auditmemory "cinregistry/pkg/platform/audit/store/memory"
)

type fakeProducer struct {
	failKey  string
	produced []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if string(r.Key) == p.failKey {
			results = append(results, kgo.ProduceResult{Record: r, Err: errors.New("broker unavailable")})
			continue
		}
		p.produced = append(p.produced, r)
		results = append(results, kgo.ProduceResult{Record: r})
	}
	return results
}

func seed(t *testing.T, store *auditmemory.InMemoryStore, n int) []audit.Entry {
	t.Helper()
	entries := make([]audit.Entry, n)
	for i := range entries {
		entries[i] = audit.Entry{
			ID:        uuid.New(),
			Action:    audit.ActionCINIssued,
			TableName: audit.TableEnrollees,
			RecordID:  audit.Ptr(uuid.NewString()),
			NewData:   audit.Snapshot{"cin": "SLOR001"},
			CreatedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.Append(context.Background(), entries[i]))
	}
	return entries
}

func TestRelayOnce(t *testing.T) {
	t.Run("publishes and marks the batch", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		entries := seed(t, store, 3)
		producer := &fakeProducer{}
		r := New(store, producer, "audit.entries")

		n, err := r.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		require.Len(t, producer.produced, 3)

		var body payload
		require.NoError(t, json.Unmarshal(producer.produced[0].Value, &body))
		assert.Equal(t, entries[0].ID.String(), body.ID)
		assert.Equal(t, "cin_issued", body.Action)
		assert.Equal(t, "SLOR001", body.NewData["cin"])
		assert.Equal(t, "audit.entries", producer.produced[0].Topic)

		pending, err := store.ListUnpublished(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("failed records stay unpublished", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		entries := seed(t, store, 2)
		producer := &fakeProducer{failKey: entries[1].ID.String()}

		n, err := New(store, producer, "audit.entries").RelayOnce(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, n)

		pending, err := store.ListUnpublished(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, entries[1].ID, pending[0].ID)
	})

	t.Run("unencodable entries are dead-lettered", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		entries := seed(t, store, 2)
		broken := audit.Entry{
			ID:        uuid.New(),
			Action:    audit.ActionFacilityReassigned,
			TableName: audit.TableEnrollees,
			RecordID:  audit.Ptr(uuid.NewString()),
			NewData:   audit.Snapshot{"score": math.Inf(1)},
			CreatedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.Append(context.Background(), broken))
		producer := &fakeProducer{}
		r := New(store, producer, "audit.entries")

		n, err := r.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, producer.produced, 2)
		for i, rec := range producer.produced {
			assert.Equal(t, entries[i].ID.String(), string(rec.Key))
		}

		pending, err := store.ListUnpublished(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, pending, "the broken entry no longer blocks the outbox")

		n, err = r.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, producer.produced, 2)
	})

	t.Run("a batch of only unencodable entries skips the broker", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		outbox := mocks.NewMockOutbox(ctrl)
		broken := audit.Entry{ID: uuid.New(), NewData: audit.Snapshot{"x": math.NaN()}}
		outbox.EXPECT().ListUnpublished(gomock.Any(), defaultBatchSize).Return([]audit.Entry{broken}, nil)
		outbox.EXPECT().MarkPublished(gomock.Any(), []uuid.UUID{broken.ID}).Return(nil)
		producer := &fakeProducer{}

		n, err := New(outbox, producer, "audit.entries").RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, producer.produced)
	})

	t.Run("outbox read failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		outbox := mocks.NewMockOutbox(ctrl)
		outbox.EXPECT().ListUnpublished(gomock.Any(), defaultBatchSize).Return(nil, errors.New("db down"))

		_, err := New(outbox, &fakeProducer{}, "audit.entries").RelayOnce(context.Background())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("empty outbox does not touch the broker", func(t *testing.T) {
		producer := &fakeProducer{}
		n, err := New(auditmemory.NewInMemoryStore(), producer, "audit.entries").RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, producer.produced)
	})
}
