package institution

import (
	"context"
	"sync"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// InMemoryStore keeps the registry in maps guarded by a RWMutex. It
// mirrors the PostgreSQL store's semantics, including the unique
// endpoint constraint, so tests exercise the same behavior.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*domain.FinancialInstitution
	byEndpoint map[string]string // endpoint -> id
	keyHashes  map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[string]*domain.FinancialInstitution),
		byEndpoint: make(map[string]string),
		keyHashes:  make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, fi *domain.FinancialInstitution, apiKeyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEndpoint[fi.Endpoint]; exists {
		return errors.New(errors.CodeConflict, "endpoint already registered")
	}
	cp := *fi
	s.byID[fi.ID] = &cp
	s.byEndpoint[fi.Endpoint] = fi.ID
	s.keyHashes[fi.ID] = apiKeyHash
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*domain.FinancialInstitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fi, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *fi
	return &cp, nil
}

func (s *InMemoryStore) FindByEndpoint(_ context.Context, endpoint string) (*domain.FinancialInstitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEndpoint[endpoint]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*domain.FinancialInstitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.FinancialInstitution, 0, len(s.byID))
	for _, fi := range s.byID {
		cp := *fi
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) UpdateName(_ context.Context, id, name string) (*domain.FinancialInstitution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	fi.Name = name
	fi.UpdatedAt = time.Now()
	cp := *fi
	return &cp, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status domain.FIStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fi.Status = status
	fi.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ApplyAllocation(_ context.Context, id string, amount float64) (*domain.FinancialInstitution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	fi.AllocatedFunds += amount
	fi.AvailableBalance += amount
	fi.UpdatedAt = time.Now()
	cp := *fi
	return &cp, nil
}

func (s *InMemoryStore) APIKeyHash(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.keyHashes[id]
	if !ok {
		return "", ErrNotFound
	}
	return hash, nil
}
