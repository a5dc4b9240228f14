// Package compliance evaluates transactions against active limit rules
// and keeps per-FI volume counters.
package compliance

import (
	"context"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

var ErrNotFound = errors.New(errors.CodeNotFound, "compliance record not found")

// RuleStore persists the limit rule catalog.
type RuleStore interface {
	CreateRule(ctx context.Context, r *domain.ComplianceRule) error
	ListActive(ctx context.Context) ([]*domain.ComplianceRule, error)
	ListAll(ctx context.Context) ([]*domain.ComplianceRule, error)
	Deactivate(ctx context.Context, id string) error
}

// StatusStore keeps per-FI rolling counters. Resets are driven by
// external time-based jobs through the Reset methods.
type StatusStore interface {
	Get(ctx context.Context, fiID string) (*domain.ComplianceStatus, error)
	AddVolume(ctx context.Context, fiID string, amount float64, offline bool) (*domain.ComplianceStatus, error)
	IncrementFlagged(ctx context.Context, fiID string) error
	ListAll(ctx context.Context) ([]*domain.ComplianceStatus, error)
	ResetDaily(ctx context.Context) error
	ResetMonthly(ctx context.Context) error
}

// ScreeningReader is the freeze/blacklist point-lookup the engine
// consults on every evaluation.
type ScreeningReader interface {
	IsFrozen(ctx context.Context, entityType domain.EntityType, entityID, fiID string) (bool, error)
	IsBlacklisted(ctx context.Context, entityType domain.EntityType, entityID, fiID string) (bool, error)
}

// AlertSink persists one alert per violation.
type AlertSink interface {
	Raise(ctx context.Context, alert *domain.Alert) (*domain.Alert, error)
}
