// Package sentinel holds the storage-level facts stores report. Services
// translate them into pkg/domain-errors codes; handlers never see them.
package sentinel

import "errors"

var (
	// ErrNotFound means no row matched the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique constraint rejected the write, such as a CIN
	// code already present in the ledger.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a backing service (Postgres, Redis) did not answer.
	ErrUnavailable = errors.New("unavailable")
)
