// Package ledger is the central transaction ledger: append-only entries,
// fund allocations, and cross-FI routing records.
package ledger

import (
	"context"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

var ErrNotFound = errors.New(errors.CodeNotFound, "ledger entry not found")

// Store persists ledger state. Appends are immediately durable; entries
// are never updated or deleted.
type Store interface {
	// Append writes the entry and assigns its MonotonicCounter.
	Append(ctx context.Context, e *domain.LedgerEntry) error
	FindEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	// List returns entries newest-first, up to limit (0 means no cap).
	List(ctx context.Context, limit int) ([]*domain.LedgerEntry, error)
	ListByFI(ctx context.Context, fiID string, limit int) ([]*domain.LedgerEntry, error)

	// Allocate persists the balance credit, the allocation entry, and the
	// allocation record as one atomic unit; a failure leaves none of the
	// three behind. The credited balances are written back onto fi.
	Allocate(ctx context.Context, fi *domain.FinancialInstitution, e *domain.LedgerEntry, a *domain.FundAllocation) error
	ListAllocations(ctx context.Context, fiID string) ([]*domain.FundAllocation, error)

	// Route persists the transfer entry and the route record as one
	// atomic unit, so every recorded intent is servable via
	// PendingForTarget.
	Route(ctx context.Context, e *domain.LedgerEntry, r *domain.CrossFIRoute) error
	// PendingForTarget returns routes addressed to the given FI so it can
	// poll for transfers instead of relying on push delivery.
	PendingForTarget(ctx context.Context, targetFI string) ([]*domain.CrossFIRoute, error)
}
