// Package institution is the entity state store for financial
// institutions: registration, status, and balance bookkeeping.
package institution

import (
	"context"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// ErrNotFound keeps FI lookups consistent across store implementations.
var ErrNotFound = errors.New(errors.CodeNotFound, "financial institution not found")

// Store is interface-driven so services stay testable and persistence
// can swap between in-memory and PostgreSQL without rewiring callers.
type Store interface {
	// Create persists a new FI. Fails with CodeConflict when the endpoint
	// is already registered.
	Create(ctx context.Context, fi *domain.FinancialInstitution, apiKeyHash string) error
	FindByID(ctx context.Context, id string) (*domain.FinancialInstitution, error)
	FindByEndpoint(ctx context.Context, endpoint string) (*domain.FinancialInstitution, error)
	List(ctx context.Context) ([]*domain.FinancialInstitution, error)
	UpdateName(ctx context.Context, id, name string) (*domain.FinancialInstitution, error)
	UpdateStatus(ctx context.Context, id string, status domain.FIStatus) error
	// ApplyAllocation credits both allocated_funds and available_balance
	// by amount. This is the only path through which allocated_funds
	// grows.
	ApplyAllocation(ctx context.Context, id string, amount float64) (*domain.FinancialInstitution, error)
	APIKeyHash(ctx context.Context, id string) (string, error)
}
