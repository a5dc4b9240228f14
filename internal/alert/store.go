// Package alert persists and triages alerts raised by the rule engine,
// the transaction monitor, and freeze transitions.
package alert

import (
	"context"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

var ErrNotFound = errors.New(errors.CodeNotFound, "alert not found")

// Filter narrows List. Zero value lists everything, newest first.
type Filter struct {
	UnresolvedOnly bool
	FIID           string
	Limit          int
}

// Store persists alerts. Alerts are append-only: the only mutations are
// the idempotent read/resolved flips.
type Store interface {
	Append(ctx context.Context, a *domain.Alert) error
	FindByID(ctx context.Context, id string) (*domain.Alert, error)
	List(ctx context.Context, f Filter) ([]*domain.Alert, error)
	SetRead(ctx context.Context, id string) error
	SetResolved(ctx context.Context, id string) error
	CountUnresolved(ctx context.Context) (int64, error)
}

// RuleStore holds the transaction monitor's heuristic catalog.
type RuleStore interface {
	ListActiveRules(ctx context.Context) ([]*domain.AlertRule, error)
	PutRule(ctx context.Context, r *domain.AlertRule) error
}
