package screening

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

type watchKey struct {
	entityType domain.EntityType
	entityID   string
	fiID       string
}

// InMemoryStore mirrors the PostgreSQL store's unique-key semantics for
// watchlist entries and active freezes.
type InMemoryStore struct {
	mu        sync.RWMutex
	watchlist map[watchKey]*domain.WatchlistEntry
	freezes   []*domain.FrozenAccount
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{watchlist: make(map[watchKey]*domain.WatchlistEntry)}
}

func (s *InMemoryStore) UpsertWatchlist(_ context.Context, e *domain.WatchlistEntry) (*domain.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := watchKey{e.EntityType, e.EntityID, e.FIID}
	now := time.Now()
	if existing, ok := s.watchlist[key]; ok {
		existing.Status = e.Status
		existing.RiskLevel = e.RiskLevel
		existing.Reason = e.Reason
		existing.ExpiresAt = e.ExpiresAt
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	cp := *e
	cp.ID = uuid.NewString()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.watchlist[key] = &cp
	out := cp
	return &out, nil
}

func (s *InMemoryStore) WatchlistFor(_ context.Context, entityType domain.EntityType, entityID, fiID string) ([]*domain.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.WatchlistEntry
	for key, e := range s.watchlist {
		if key.entityType != entityType || key.entityID != entityID {
			continue
		}
		if key.fiID != "" && key.fiID != fiID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) CountWatchlist(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.watchlist)), nil
}

func (s *InMemoryStore) CreateFreeze(_ context.Context, fa *domain.FrozenAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.freezes {
		if f.IsFrozen && f.EntityType == fa.EntityType && f.EntityID == fa.EntityID && f.FIID == fa.FIID {
			return errors.New(errors.CodeConflict, "entity already frozen")
		}
	}
	cp := *fa
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.freezes = append(s.freezes, &cp)
	return nil
}

func (s *InMemoryStore) UpdateFreeze(_ context.Context, fa *domain.FrozenAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.freezes {
		if f.IsFrozen && f.EntityType == fa.EntityType && f.EntityID == fa.EntityID && f.FIID == fa.FIID {
			f.Reason = fa.Reason
			f.FrozenBy = fa.FrozenBy
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) ReleaseFreeze(_ context.Context, entityType domain.EntityType, entityID, fiID string, at time.Time) (*domain.FrozenAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.freezes {
		if f.IsFrozen && f.EntityType == entityType && f.EntityID == entityID && f.FIID == fiID {
			f.IsFrozen = false
			t := at
			f.UnfrozenAt = &t
			cp := *f
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ActiveFreezes(_ context.Context, entityType domain.EntityType, entityID string) ([]*domain.FrozenAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.FrozenAccount
	for _, f := range s.freezes {
		if f.IsFrozen && f.EntityType == entityType && f.EntityID == entityID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountFrozen(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, f := range s.freezes {
		if f.IsFrozen {
			count++
		}
	}
	return count, nil
}
