package nullifier

import (
	"context"
	"log/slog"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// Registry exposes nullifier registration and lookup. A registration
// that fails with CodeDoubleSpend is fatal to the originating
// transaction; callers must abort, never retry blindly.
type Registry struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func New(store Store, opts ...Option) *Registry {
	reg := &Registry{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Register persists the nullifier before returning. On collision the
// error names the conflicting transaction.
func (r *Registry) Register(ctx context.Context, value, fiID, txID, serial string, amount float64) (*domain.Nullifier, error) {
	if value == "" {
		return nil, errors.New(errors.CodeValidation, "nullifier is required")
	}
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	if txID == "" {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}

	n := &domain.Nullifier{
		Value:         value,
		FIID:          fiID,
		TransactionID: txID,
		SerialNumber:  serial,
		Amount:        amount,
		RegisteredAt:  time.Now(),
	}
	conflicting, err := r.store.Insert(ctx, n)
	if err != nil {
		if errors.HasCode(err, errors.CodeDoubleSpend) && conflicting != nil {
			r.logger.WarnContext(ctx, "double spend rejected",
				"nullifier", value,
				"fi_id", fiID,
				"conflicting_tx", conflicting.TransactionID)
		}
		return nil, err
	}
	return n, nil
}

// Check is a pure lookup; a missing nullifier is not an error state for
// the caller, so it reports found=false instead of CodeNotFound.
func (r *Registry) Check(ctx context.Context, value string) (*domain.Nullifier, bool, error) {
	if value == "" {
		return nil, false, errors.New(errors.CodeValidation, "nullifier is required")
	}
	n, err := r.store.Find(ctx, value)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return n, true, nil
}

// BatchItem is one nullifier in a sync batch from an FI node.
type BatchItem struct {
	Nullifier    string
	TxID         string
	SerialNumber string
	Amount       float64
}

// BatchError pins a failure to its input position so the FI can requeue
// precisely.
type BatchError struct {
	Index     int
	Nullifier string
	Err       error
}

// BatchResult is the partial outcome of SyncBatch.
type BatchResult struct {
	Registered []*domain.Nullifier
	Errors     []BatchError
}

// SyncBatch registers many nullifiers for one FI, isolating per-item
// failures. The batch as a whole is not atomic.
func (r *Registry) SyncBatch(ctx context.Context, fiID string, items []BatchItem) (*BatchResult, error) {
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	result := &BatchResult{}
	for i, item := range items {
		n, err := r.Register(ctx, item.Nullifier, fiID, item.TxID, item.SerialNumber, item.Amount)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{Index: i, Nullifier: item.Nullifier, Err: err})
			continue
		}
		result.Registered = append(result.Registered, n)
	}
	return result, nil
}
