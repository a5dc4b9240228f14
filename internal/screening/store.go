// Package screening owns watchlist and freeze state. Its reads are the
// point-lookup path the rule engine consults on every transaction.
package screening

import (
	"context"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

var ErrNotFound = errors.New(errors.CodeNotFound, "screening record not found")

// Store persists watchlist entries and freeze records. Both are keyed by
// (entity type, entity id, fi id); an empty fi id scopes a record
// network-wide.
type Store interface {
	// UpsertWatchlist creates or updates the entry for its key.
	UpsertWatchlist(ctx context.Context, e *domain.WatchlistEntry) (*domain.WatchlistEntry, error)
	// WatchlistFor returns entries matching the entity whose fi scope is
	// either global or the given fi.
	WatchlistFor(ctx context.Context, entityType domain.EntityType, entityID, fiID string) ([]*domain.WatchlistEntry, error)
	CountWatchlist(ctx context.Context) (int64, error)

	// CreateFreeze records a new active freeze. Fails with CodeConflict
	// if the key already has one.
	CreateFreeze(ctx context.Context, fa *domain.FrozenAccount) error
	// UpdateFreeze rewrites reason/actor on an existing active freeze
	// (last-writer-wins).
	UpdateFreeze(ctx context.Context, fa *domain.FrozenAccount) error
	// ReleaseFreeze flips the active freeze for the key to unfrozen.
	// Returns the released record, or ErrNotFound when none is active.
	ReleaseFreeze(ctx context.Context, entityType domain.EntityType, entityID, fiID string, at time.Time) (*domain.FrozenAccount, error)
	// ActiveFreezes returns all active freezes for the entity across fi
	// scopes.
	ActiveFreezes(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.FrozenAccount, error)
	CountFrozen(ctx context.Context) (int64, error)
}

// AlertSink is the slice of the alert service screening needs.
type AlertSink interface {
	Raise(ctx context.Context, alert *domain.Alert) (*domain.Alert, error)
}

// EventPublisher hands domain events to the notification dispatcher.
// Publishing is fire-and-forget.
type EventPublisher interface {
	Publish(ev domain.Event)
}
