// Package relay delivers persisted audit entries to a Kafka topic for downstream
// compliance consumers. Entries are read from the audit outbox and stamped as
// published only after the broker acknowledges them.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "cinregistry/pkg/platform/audit"
)

const (
	defaultInterval  = 5 * time.Second
	defaultBatchSize = 200
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay polls the outbox and publishes unpublished entries.
type Relay struct {
	outbox    audit.Outbox
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures the Relay.
type Option func(*Relay)

// WithLogger sets the logger for batch failures and dead letters.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize caps how many entries one tick reads. Non-positive values are ignored.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// New builds a relay publishing to topic.
func New(outbox audit.Outbox, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewClient builds a franz-go producer client for the given brokers.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// Run relays a batch every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit relay batch failed",
					"log_type", "audit",
					"error", err,
				)
			}
		}
	}
}

// payload is the message body consumers decode.
type payload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name"`
	RecordID  string         `json:"record_id,omitempty"`
	OldData   audit.Snapshot `json:"old_data,omitempty"`
	NewData   audit.Snapshot `json:"new_data,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// RelayOnce publishes one batch and returns how many entries were acknowledged.
// Entries that fail to publish stay unpublished and are retried on the next tick.
// Entries that cannot be encoded are logged as dead letters and marked published
// so they never block the outbox.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished audit entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	var dead []uuid.UUID
	for _, e := range entries {
		rec, err := r.record(e)
		if err != nil {
			r.logger.ErrorContext(ctx, "dead-lettering unencodable audit entry",
				"log_type", "audit",
				"entry_id", e.ID.String(),
				"action", string(e.Action),
				"table_name", e.TableName,
				"record_id", e.Record(),
				"error", err,
			)
			dead = append(dead, e.ID)
			continue
		}
		records = append(records, rec)
	}

	var results kgo.ProduceResults
	if len(records) > 0 {
		results = r.producer.ProduceSync(ctx, records...)
	}
	acked := make([]uuid.UUID, 0, len(results))
	var firstErr error
	for _, res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		entryID, err := uuid.ParseBytes(res.Record.Key)
		if err != nil {
			continue
		}
		acked = append(acked, entryID)
	}

	if err := r.outbox.MarkPublished(ctx, append(acked, dead...)); err != nil {
		return 0, fmt.Errorf("mark audit entries published: %w", err)
	}
	if firstErr != nil {
		return len(acked), fmt.Errorf("publish audit entries: %w", firstErr)
	}
	return len(acked), nil
}

func (r *Relay) record(e audit.Entry) (*kgo.Record, error) {
	p := payload{
		ID:        e.ID.String(),
		Action:    string(e.Action),
		TableName: e.TableName,
		RecordID:  e.Record(),
		OldData:   e.OldData,
		NewData:   e.NewData,
		RequestID: e.RequestID,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.UserID != nil && !e.UserID.IsNil() {
		p.UserID = e.UserID.String()
	}
	value, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: r.topic,
		Key:   []byte(e.ID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "table_name", Value: []byte(e.TableName)},
			{Key: "action", Value: []byte(e.Action)},
		},
	}, nil
}
