// Package cin issues Client Identification Numbers.
//
// A primary CIN is <plan><lga><seq> (SLOR001); a dependant CIN is
// <parent>-D<seq> (SLOR001-D001). Every issued code is claimed in a ledger
// whose unique constraint on code is the final guard against duplicates.
package cin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPrimary   Kind = "primary"
	KindDependant Kind = "dependant"
)

// Issuance is one row of the issued-CIN ledger.
type Issuance struct {
	Code     string
	Prefix   string
	Sequence int
	Kind     Kind
	OwnerID  uuid.UUID
	IssuedAt time.Time
}

// Ledger records issued codes. Claim returns sentinel.ErrConflict when the
// code (or the prefix/sequence pair) was already issued.
type Ledger interface {
	MaxSequence(ctx context.Context, prefix string) (int, error)
	Claim(ctx context.Context, issuance Issuance) error
}

// Counter hands out candidate sequences for a prefix.
type Counter interface {
	Next(ctx context.Context, prefix string) (int, error)
}

// Resyncer is implemented by counters holding state outside the ledger. The
// generator calls Resync after a conflict so the next candidate starts past
// the ledger maximum.
type Resyncer interface {
	Resync(ctx context.Context, prefix string) error
}
