package store

import (
	"context"
	"sort"
	"sync"

	"cinregistry/internal/cin"
	"cinregistry/pkg/platform/sentinel"
)

// InMemoryLedger keeps issued codes in a map guarded by a mutex.
type InMemoryLedger struct {
	mu       sync.RWMutex
	byCode   map[string]cin.Issuance
	maxByKey map[string]int
	seqTaken map[string]map[int]struct{}
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		byCode:   make(map[string]cin.Issuance),
		maxByKey: make(map[string]int),
		seqTaken: make(map[string]map[int]struct{}),
	}
}

func (l *InMemoryLedger) MaxSequence(_ context.Context, prefix string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxByKey[prefix], nil
}

func (l *InMemoryLedger) Claim(_ context.Context, issuance cin.Issuance) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byCode[issuance.Code]; ok {
		return sentinel.ErrConflict
	}
	taken := l.seqTaken[issuance.Prefix]
	if _, ok := taken[issuance.Sequence]; ok {
		return sentinel.ErrConflict
	}
	if taken == nil {
		taken = make(map[int]struct{})
		l.seqTaken[issuance.Prefix] = taken
	}
	taken[issuance.Sequence] = struct{}{}
	l.byCode[issuance.Code] = issuance
	if issuance.Sequence > l.maxByKey[issuance.Prefix] {
		l.maxByKey[issuance.Prefix] = issuance.Sequence
	}
	return nil
}

// Codes returns every issued code in lexical order.
func (l *InMemoryLedger) Codes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.byCode))
	for code := range l.byCode {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
