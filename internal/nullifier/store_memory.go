package nullifier

import (
	"context"
	"sync"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// InMemoryStore enforces uniqueness with a single map insert under the
// write lock, matching the PostgreSQL primary-key semantics.
type InMemoryStore struct {
	mu         sync.RWMutex
	nullifiers map[string]*domain.Nullifier
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nullifiers: make(map[string]*domain.Nullifier)}
}

func (s *InMemoryStore) Insert(_ context.Context, n *domain.Nullifier) (*domain.Nullifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.nullifiers[n.Value]; ok {
		cp := *existing
		return &cp, errors.Newf(errors.CodeDoubleSpend,
			"nullifier already registered by transaction %s", existing.TransactionID)
	}
	cp := *n
	s.nullifiers[n.Value] = &cp
	return nil, nil
}

func (s *InMemoryStore) Find(_ context.Context, value string) (*domain.Nullifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nullifiers[value]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.nullifiers)), nil
}
