package recorder

import (
	"context"
	"time"
)

const (
	defaultRetryInterval = 10 * time.Second
	retryBatchSize       = 100
)

// Retrier replays parked entries on an interval and raises grace-window alarms.
type Retrier struct {
	recorder *Recorder
	interval time.Duration
}

func NewRetrier(r *Recorder, interval time.Duration) *Retrier {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	return &Retrier{recorder: r, interval: interval}
}

func (w *Retrier) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.RetryOnce(ctx)
		}
	}
}

// RetryOnce attempts every currently parked entry once and returns how many persisted.
func (w *Retrier) RetryOnce(ctx context.Context) int {
	r := w.recorder
	persisted := 0

	for remaining := r.pending.len(); remaining > 0; remaining -= retryBatchSize {
		for _, p := range r.pending.dequeueBatch(min(remaining, retryBatchSize)) {
			if err := r.write(ctx, p.entry); err != nil {
				p.attempts++
				p.lastErr = err
				if !p.alarmed && r.now().Sub(p.firstFailure) >= r.graceWindow {
					p.alarmed = true
					r.raise(ctx, ReasonGraceExceeded, p)
				}
				r.requeue(ctx, p)
				continue
			}
			persisted++
			r.metrics.incRetrySuccess()
		}
	}

	r.metrics.setPending(r.pending.len())
	if persisted > 0 {
		r.logger.InfoContext(ctx, "parked audit entries persisted",
			"log_type", "audit",
			"count", persisted,
			"still_pending", r.pending.len(),
		)
	}
	return persisted
}
