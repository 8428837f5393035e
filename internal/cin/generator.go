package cin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/sentinel"
	"cinregistry/pkg/requestcontext"
)

// DefaultMaxAttempts bounds the claim loop for one code.
const DefaultMaxAttempts = 5

// Generator allocates a sequence and claims the resulting code in the ledger,
// retrying on conflict up to maxAttempts times. When ctx carries a transaction
// the claim joins it, so an issuance that rolls back frees nothing and reuses
// nothing.
type Generator struct {
	ledger      Ledger
	counter     Counter
	maxAttempts int
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithCounter replaces the default ledger-backed counter.
func WithCounter(c Counter) Option {
	return func(g *Generator) {
		g.counter = c
	}
}

// WithMaxAttempts bounds the claim retries. Non-positive values are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithLogger sets the logger for conflicts and exhausted retries.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithMetrics records allocations on m.
func WithMetrics(m *Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// NewGenerator builds a generator over ledger. Without WithCounter, sequences
// come from the ledger maximum.
func NewGenerator(ledger Ledger, opts ...Option) *Generator {
	g := &Generator{
		ledger:      ledger,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.counter == nil {
		g.counter = NewStoreCounter(ledger)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// GeneratePrimaryCIN issues the next code for plan and lgaCode with no owner recorded.
func (g *Generator) GeneratePrimaryCIN(ctx context.Context, plan, lgaCode string) (string, error) {
	return g.IssuePrimary(ctx, plan, lgaCode, uuid.Nil)
}

// IssuePrimary issues the next code for plan and lga and records owner in the ledger.
func (g *Generator) IssuePrimary(ctx context.Context, plan, lga string, owner uuid.UUID) (string, error) {
	prefix, err := PrimaryPrefix(plan, lga)
	if err != nil {
		return "", err
	}
	return g.issue(ctx, KindPrimary, prefix, owner)
}

// GenerateDependantCIN issues the next dependant code under parentCIN.
func (g *Generator) GenerateDependantCIN(ctx context.Context, parentCIN string) (string, error) {
	return g.IssueDependant(ctx, parentCIN, uuid.Nil)
}

// IssueDependant issues the next code under parentCIN and records owner.
func (g *Generator) IssueDependant(ctx context.Context, parentCIN string, owner uuid.UUID) (string, error) {
	prefix, err := DependantPrefix(parentCIN)
	if err != nil {
		return "", err
	}
	return g.issue(ctx, KindDependant, prefix, owner)
}

func (g *Generator) issue(ctx context.Context, kind Kind, prefix string, owner uuid.UUID) (string, error) {
	start := time.Now()
	defer g.metrics.observe(kind, start)

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "cin generation aborted")
		}

		seq, err := g.counter.Next(ctx, prefix)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate sequence")
		}
		code, err := Format(prefix, seq)
		if err != nil {
			return "", err
		}

		err = g.ledger.Claim(ctx, Issuance{
			Code:     code,
			Prefix:   prefix,
			Sequence: seq,
			Kind:     kind,
			OwnerID:  owner,
			IssuedAt: requestcontext.Now(ctx),
		})
		if err == nil {
			g.metrics.incIssued(kind)
			return code, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record issued cin")
		}

		g.metrics.incConflict(kind)
		g.logger.WarnContext(ctx, "cin sequence conflict",
			"prefix", prefix,
			"sequence", seq,
			"attempt", attempt,
		)
		if r, ok := g.counter.(Resyncer); ok {
			if err := r.Resync(ctx, prefix); err != nil {
				g.logger.WarnContext(ctx, "cin counter resync failed", "prefix", prefix, "error", err)
			}
		}
	}

	g.metrics.incExhausted(kind)
	g.logger.ErrorContext(ctx, "cin generation retries exhausted",
		"prefix", prefix,
		"attempts", g.maxAttempts,
	)
	return "", dErrors.Newf(dErrors.CodeGenerationConflict,
		"could not allocate a unique code for %s after %d attempts", prefix, g.maxAttempts)
}
