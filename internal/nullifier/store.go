// Package nullifier is the global double-spend guard. A nullifier is
// registered exactly once; any later sighting is a double spend.
package nullifier

import (
	"context"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

var ErrNotFound = errors.New(errors.CodeNotFound, "nullifier not found")

// Store persists nullifiers. Insert must enforce uniqueness at the
// storage layer itself, not check-then-insert, so exactly one of two
// racing registrations wins regardless of interleaving.
type Store interface {
	// Insert persists n. On collision it returns the already-registered
	// nullifier together with a CodeDoubleSpend error.
	Insert(ctx context.Context, n *domain.Nullifier) (*domain.Nullifier, error)
	Find(ctx context.Context, value string) (*domain.Nullifier, error)
	Count(ctx context.Context) (int64, error)
}
