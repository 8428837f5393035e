// Package recorder writes audit entries alongside business mutations.
//
// Record never fails the caller: an entry that cannot be persisted is parked in a
// bounded queue and replayed by the Retrier. Entries still unpersisted after the
// grace window, or that overflow the queue, raise an IntegrityAlarm.
package recorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/requestcontext"
)

const defaultGraceWindow = 5 * time.Minute

// Recorder persists audit entries with best-effort semantics at request time.
type Recorder struct {
	store       audit.Store
	pending     *pendingQueue
	sink        AlarmSink
	logger      *slog.Logger
	metrics     *Metrics
	graceWindow time.Duration
	now         func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithAlarmSink replaces the default log sink.
func WithAlarmSink(sink AlarmSink) Option {
	return func(r *Recorder) {
		r.sink = sink
	}
}

// WithGraceWindow sets how long a parked entry may stay unpersisted before alarming.
func WithGraceWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.graceWindow = d
		}
	}
}

// WithPendingCapacity bounds the retry queue.
func WithPendingCapacity(n int) Option {
	return func(r *Recorder) {
		r.pending = newPendingQueue(n)
	}
}

// WithClock overrides the wall clock used for grace-window accounting.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func New(store audit.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:       store,
		pending:     newPendingQueue(defaultPendingCapacity),
		graceWindow: defaultGraceWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.sink == nil {
		r.sink = NewLogSink(r.logger)
	}
	return r
}

// Record writes entry in the transaction carried by ctx, if any. A failed write
// is parked for the retrier; the caller's mutation is never aborted.
func (r *Recorder) Record(ctx context.Context, entry audit.Entry) {
	entry = r.prepare(ctx, entry)
	if err := r.write(ctx, entry); err != nil {
		r.park(ctx, entry, err)
	}
}

// Pending returns the number of parked entries.
func (r *Recorder) Pending() int {
	return r.pending.len()
}

func (r *Recorder) prepare(ctx context.Context, entry audit.Entry) audit.Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.UserID == nil {
		if actor := requestcontext.UserID(ctx); !actor.IsNil() {
			entry.UserID = &actor
		}
	}
	return entry
}

func (r *Recorder) write(ctx context.Context, entry audit.Entry) error {
	start := time.Now()
	if err := r.store.Append(ctx, entry); err != nil {
		return err
	}
	r.metrics.observeWrite(time.Since(start).Seconds())
	r.metrics.incRecorded(string(entry.Action))
	r.logger.InfoContext(ctx, string(entry.Action),
		"log_type", "audit",
		"entry_id", entry.ID.String(),
		"table_name", entry.TableName,
		"record_id", entry.Record(),
		"user_id", entry.Actor().String(),
		"request_id", entry.RequestID,
	)
	return nil
}

func (r *Recorder) park(ctx context.Context, entry audit.Entry, err error) {
	r.metrics.incWriteFailure()
	r.logger.WarnContext(ctx, "audit write failed, parked for retry",
		"log_type", "audit",
		"entry_id", entry.ID.String(),
		"action", string(entry.Action),
		"table_name", entry.TableName,
		"record_id", entry.Record(),
		"error", err,
	)

	p := parked{entry: entry, firstFailure: r.now(), attempts: 1, lastErr: err}
	r.requeue(ctx, p)
}

// requeue parks p, raising an overflow alarm if the queue is full.
func (r *Recorder) requeue(ctx context.Context, p parked) {
	if !r.pending.tryEnqueue(p) {
		r.raise(ctx, ReasonQueueOverflow, p)
	}
	r.metrics.setPending(r.pending.len())
}

func (r *Recorder) raise(ctx context.Context, reason AlarmReason, p parked) {
	r.metrics.incAlarm(reason)
	alarm := IntegrityAlarm{
		Reason:       reason,
		Entry:        p.entry,
		FirstFailure: p.firstFailure,
		Attempts:     p.attempts,
		LastError:    describe(p.lastErr),
	}
	r.logger.ErrorContext(ctx, "audit integrity alarm raised",
		"log_type", "audit",
		"reason", string(reason),
		"entry_id", p.entry.ID.String(),
		"error", alarm.Err(),
	)
	if err := r.sink.Raise(ctx, alarm); err != nil {
		r.logger.ErrorContext(ctx, "alarm sink failed",
			"log_type", "audit",
			"entry_id", p.entry.ID.String(),
			"error", err,
		)
	}
}
