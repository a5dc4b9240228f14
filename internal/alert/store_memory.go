package alert

import (
	"context"
	"sort"
	"sync"

	"centralledger/internal/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	alerts []*domain.Alert
	byID   map[string]*domain.Alert
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*domain.Alert)}
}

func (s *InMemoryStore) Append(_ context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts = append(s.alerts, &cp)
	s.byID[cp.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		if f.UnresolvedOnly && a.IsResolved {
			continue
		}
		if f.FIID != "" && a.FIID != f.FIID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) SetRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.IsRead = true
	return nil
}

func (s *InMemoryStore) SetResolved(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.IsResolved = true
	return nil
}

func (s *InMemoryStore) CountUnresolved(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, a := range s.alerts {
		if !a.IsResolved {
			count++
		}
	}
	return count, nil
}

// InMemoryRuleStore holds the monitor catalog.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*domain.AlertRule
}

func NewInMemoryRules() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[string]*domain.AlertRule)}
}

func (s *InMemoryRuleStore) ListActiveRules(_ context.Context) ([]*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.AlertRule
	for _, r := range s.rules {
		if r.IsActive {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryRuleStore) PutRule(_ context.Context, r *domain.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}
