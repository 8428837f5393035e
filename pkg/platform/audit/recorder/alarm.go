package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
)

// AlarmReason says why an IntegrityAlarm was raised.
type AlarmReason string

const (
	// ReasonGraceExceeded: the entry stayed unpersisted past the grace window.
	ReasonGraceExceeded AlarmReason = "grace_exceeded"
	// ReasonQueueOverflow: the pending queue was full and the entry could not be parked.
	ReasonQueueOverflow AlarmReason = "queue_overflow"
)

// IntegrityAlarm reports a mutation whose audit entry may never be persisted.
type IntegrityAlarm struct {
	Reason       AlarmReason
	Entry        audit.Entry
	FirstFailure time.Time
	Attempts     int
	LastError    string
}

// Err renders the alarm as a domain error for callers that propagate it.
func (a IntegrityAlarm) Err() error {
	return dErrors.Newf(dErrors.CodeIntegrityAlarm,
		"audit entry %s (%s on %s) unpersisted: %s", a.Entry.ID, a.Entry.Action, a.Entry.TableName, a.Reason)
}

// AlarmSink receives integrity alarms (paging, ticketing, a compliance topic).
type AlarmSink interface {
	Raise(ctx context.Context, alarm IntegrityAlarm) error
}

// LogSink writes alarms to the structured log. It is the default sink.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Raise(ctx context.Context, alarm IntegrityAlarm) error {
	s.logger.ErrorContext(ctx, "CRITICAL: audit integrity alarm",
		"log_type", "audit",
		"reason", string(alarm.Reason),
		"entry_id", alarm.Entry.ID.String(),
		"action", string(alarm.Entry.Action),
		"table_name", alarm.Entry.TableName,
		"record_id", alarm.Entry.Record(),
		"attempts", alarm.Attempts,
		"first_failure", alarm.FirstFailure,
		"error", alarm.LastError,
	)
	return nil
}

func describe(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprint(err)
}
