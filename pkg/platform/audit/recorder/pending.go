package recorder

import (
	"sync"
	"time"

	audit "cinregistry/pkg/platform/audit"
)

// parked is an entry whose write failed and is waiting for the retrier.
type parked struct {
	entry        audit.Entry
	firstFailure time.Time
	attempts     int
	lastErr      error
	alarmed      bool
}

// pendingQueue is a bounded FIFO of parked entries. Unlike a drop-oldest ring
// buffer it refuses new entries when full; the caller raises the alarm.
type pendingQueue struct {
	mu       sync.Mutex
	items    []parked
	head     int // next read position
	count    int
	capacity int
}

const defaultPendingCapacity = 1024

func newPendingQueue(capacity int) *pendingQueue {
	if capacity <= 0 {
		capacity = defaultPendingCapacity
	}
	return &pendingQueue{
		items:    make([]parked, capacity),
		capacity: capacity,
	}
}

// tryEnqueue returns false if the queue is full.
func (q *pendingQueue) tryEnqueue(p parked) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count >= q.capacity {
		return false
	}
	q.items[(q.head+q.count)%q.capacity] = p
	q.count++
	return true
}

// dequeueBatch removes up to n entries, oldest first.
func (q *pendingQueue) dequeueBatch(n int) []parked {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	n = min(n, q.count)

	out := make([]parked, n)
	for i := range n {
		out[i] = q.items[q.head]
		q.items[q.head] = parked{}
		q.head = (q.head + 1) % q.capacity
	}
	q.count -= n
	return out
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
