package ledger

import (
	"context"
	"sync"

	"centralledger/internal/domain"
)

// InMemoryStore backs tests and DSN-less deployments. It holds the
// institution directory so allocation credits and ledger writes form
// one unit, mirroring the PostgreSQL store's transaction.
type InMemoryStore struct {
	mu           sync.RWMutex
	institutions InstitutionDirectory
	entries      []*domain.LedgerEntry
	byID         map[string]*domain.LedgerEntry
	allocations  []*domain.FundAllocation
	routes       []*domain.CrossFIRoute
	counter      uint64
}

func NewInMemory(institutions InstitutionDirectory) *InMemoryStore {
	return &InMemoryStore{
		institutions: institutions,
		byID:         make(map[string]*domain.LedgerEntry),
	}
}

func (s *InMemoryStore) Append(_ context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
	return nil
}

// appendLocked assigns the counter and stores a copy. Callers hold the
// write lock.
func (s *InMemoryStore) appendLocked(e *domain.LedgerEntry) {
	s.counter++
	e.MonotonicCounter = s.counter
	cp := *e
	s.entries = append(s.entries, &cp)
	s.byID[cp.ID] = &cp
}

func (s *InMemoryStore) FindEntry(_ context.Context, id string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context, limit int) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*domain.LedgerEntry) bool { return true }, limit), nil
}

func (s *InMemoryStore) ListByFI(_ context.Context, fiID string, limit int) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(e *domain.LedgerEntry) bool { return e.FIID == fiID }, limit), nil
}

// collect walks entries newest-first. Callers hold the read lock.
func (s *InMemoryStore) collect(match func(*domain.LedgerEntry) bool, limit int) []*domain.LedgerEntry {
	out := []*domain.LedgerEntry{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !match(s.entries[i]) {
			continue
		}
		cp := *s.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *InMemoryStore) Allocate(ctx context.Context, fi *domain.FinancialInstitution, e *domain.LedgerEntry, a *domain.FundAllocation) error {
	// Credit first: the appends below cannot fail, so a rejected credit
	// leaves no ledger residue and a successful one is always paired
	// with its entry and allocation record.
	updated, err := s.institutions.ApplyAllocation(ctx, fi.ID, a.Amount)
	if err != nil {
		return err
	}
	*fi = *updated

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
	cp := *a
	s.allocations = append(s.allocations, &cp)
	return nil
}

func (s *InMemoryStore) ListAllocations(_ context.Context, fiID string) ([]*domain.FundAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.FundAllocation{}
	for _, a := range s.allocations {
		if a.FIID == fiID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Route(_ context.Context, e *domain.LedgerEntry, r *domain.CrossFIRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
	cp := *r
	s.routes = append(s.routes, &cp)
	return nil
}

func (s *InMemoryStore) PendingForTarget(_ context.Context, targetFI string) ([]*domain.CrossFIRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.CrossFIRoute{}
	for _, r := range s.routes {
		if r.TargetFI == targetFI {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
