package compliance

import (
	"context"
	"sort"
	"sync"
	"time"

	"centralledger/internal/domain"
)

type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*domain.ComplianceRule
}

func NewInMemoryRules() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[string]*domain.ComplianceRule)}
}

func (s *InMemoryRuleStore) CreateRule(_ context.Context, r *domain.ComplianceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *InMemoryRuleStore) ListActive(ctx context.Context) ([]*domain.ComplianceRule, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (s *InMemoryRuleStore) ListAll(_ context.Context) ([]*domain.ComplianceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ComplianceRule, 0, len(s.rules))
	for _, r := range s.rules {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryRuleStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return ErrNotFound
	}
	r.IsActive = false
	return nil
}

type InMemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]*domain.ComplianceStatus
}

func NewInMemoryStatus() *InMemoryStatusStore {
	return &InMemoryStatusStore{statuses: make(map[string]*domain.ComplianceStatus)}
}

func (s *InMemoryStatusStore) Get(_ context.Context, fiID string) (*domain.ComplianceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[fiID]
	if !ok {
		return &domain.ComplianceStatus{FIID: fiID}, nil
	}
	cp := *st
	return &cp, nil
}

func (s *InMemoryStatusStore) AddVolume(_ context.Context, fiID string, amount float64, offline bool) (*domain.ComplianceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[fiID]
	if !ok {
		st = &domain.ComplianceStatus{FIID: fiID}
		s.statuses[fiID] = st
	}
	st.DailyVolume += amount
	st.MonthlyVolume += amount
	if offline {
		st.OfflineTxCount++
	}
	st.UpdatedAt = time.Now()
	cp := *st
	return &cp, nil
}

func (s *InMemoryStatusStore) IncrementFlagged(_ context.Context, fiID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[fiID]
	if !ok {
		st = &domain.ComplianceStatus{FIID: fiID}
		s.statuses[fiID] = st
	}
	st.FlaggedCount++
	st.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStatusStore) ListAll(_ context.Context) ([]*domain.ComplianceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ComplianceStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FIID < out[j].FIID })
	return out, nil
}

func (s *InMemoryStatusStore) ResetDaily(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		st.DailyVolume = 0
		st.UpdatedAt = time.Now()
	}
	return nil
}

func (s *InMemoryStatusStore) ResetMonthly(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		st.MonthlyVolume = 0
		st.OfflineTxCount = 0
		st.UpdatedAt = time.Now()
	}
	return nil
}
