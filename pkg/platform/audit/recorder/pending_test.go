package recorder

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	audit "cinregistry/pkg/platform/audit"
)

func TestPendingQueue(t *testing.T) {
	q := newPendingQueue(3)
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = uuid.New()
	}

	for _, entryID := range ids[:3] {
		assert.True(t, q.tryEnqueue(parked{entry: audit.Entry{ID: entryID}}))
	}
	assert.False(t, q.tryEnqueue(parked{entry: audit.Entry{ID: ids[3]}}), "full queue refuses")
	assert.Equal(t, 3, q.len())

	batch := q.dequeueBatch(2)
	assert.Equal(t, ids[0], batch[0].entry.ID)
	assert.Equal(t, ids[1], batch[1].entry.ID)

	assert.True(t, q.tryEnqueue(parked{entry: audit.Entry{ID: ids[3]}}), "wraps around")
	rest := q.dequeueBatch(10)
	assert.Len(t, rest, 2)
	assert.Equal(t, ids[2], rest[0].entry.ID)
	assert.Equal(t, ids[3], rest[1].entry.ID)
	assert.Nil(t, q.dequeueBatch(1))
}

func TestNewPendingQueueDefaultsCapacity(t *testing.T) {
	assert.Equal(t, defaultPendingCapacity, newPendingQueue(0).capacity)
}
