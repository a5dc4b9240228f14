package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"centralledger/internal/domain"
	"centralledger/internal/platform/metrics"
	"centralledger/pkg/errors"
)

// InstitutionDirectory is the slice of the FI store the ledger needs:
// existence checks and balance credits.
type InstitutionDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.FinancialInstitution, error)
	ApplyAllocation(ctx context.Context, id string, amount float64) (*domain.FinancialInstitution, error)
}

// EventPublisher hands domain events to the notification dispatcher.
type EventPublisher interface {
	Publish(ev domain.Event)
}

// Service owns ledger appends, fund allocation, and cross-FI routing.
type Service struct {
	store        Store
	institutions InstitutionDirectory
	events       EventPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func New(store Store, institutions InstitutionDirectory, opts ...Option) *Service {
	s := &Service{
		store:        store,
		institutions: institutions,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one generic ledger entry. The entry is durable when
// Append returns; there is no buffering.
func (s *Service) Append(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if e.TransactionID == "" {
		return nil, errors.New(errors.CodeValidation, "transaction id is required")
	}
	if e.FIID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	if e.Amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if !domain.ValidEntryType(e.Type) {
		return nil, errors.Newf(errors.CodeValidation, "unknown entry type %q", e.Type)
	}

	cp := *e
	cp.ID = "led-" + uuid.NewString()
	cp.Timestamp = time.Now()
	if err := s.store.Append(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// AllocationResult pairs the credited FI with the records the
// allocation produced.
type AllocationResult struct {
	Institution *domain.FinancialInstitution
	Allocation  *domain.FundAllocation
	Entry       *domain.LedgerEntry
}

// AllocateFunds credits amount to the FI's allocated funds and
// available balance, appends exactly one allocation entry, and emits an
// AllocationMade event for the dispatcher.
func (s *Service) AllocateFunds(ctx context.Context, fiID string, amount float64) (*AllocationResult, error) {
	if amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	fi, err := s.institutions.FindByID(ctx, fiID)
	if err != nil {
		return nil, err
	}
	if fi.Status != domain.FIStatusActive {
		return nil, errors.Newf(errors.CodeConflict, "financial institution %s is %s", fiID, fi.Status)
	}

	txID := "alloc-" + uuid.NewString()
	entry := &domain.LedgerEntry{
		ID:            "led-" + uuid.NewString(),
		TransactionID: txID,
		FIID:          fiID,
		ToWallet:      fiID,
		Amount:        amount,
		Type:          domain.EntryAllocation,
		Timestamp:     time.Now(),
	}
	allocation := &domain.FundAllocation{
		ID:            "fal-" + uuid.NewString(),
		FIID:          fiID,
		TransactionID: txID,
		LedgerEntryID: entry.ID,
		Amount:        amount,
		CreatedAt:     entry.Timestamp,
	}
	// The credit, the entry, and the allocation record land together or
	// not at all; a storage failure must not leave phantom allocated
	// funds for the reconciler to chase.
	if err := s.store.Allocate(ctx, fi, entry, allocation); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AllocationsTotal.Inc()
		s.metrics.AllocatedFundsTotal.Add(amount)
	}
	if s.events != nil {
		s.events.Publish(domain.Event{
			Kind:       domain.EventAllocationMade,
			FIID:       fiID,
			OccurredAt: time.Now(),
			Allocation: &domain.AllocationMade{
				FIID:          fiID,
				TransactionID: txID,
				Amount:        amount,
			},
		})
	}
	s.logger.InfoContext(ctx, "funds allocated",
		"fi_id", fiID,
		"amount", amount,
		"transaction_id", txID)

	return &AllocationResult{Institution: fi, Allocation: allocation, Entry: entry}, nil
}

// RouteCrossFI records intent to move amount between wallets of two
// FIs. No balances move and the target FI is not contacted; it polls
// via PendingForTarget.
func (s *Service) RouteCrossFI(ctx context.Context, sourceFI, targetFI, fromWallet, toWallet string, amount float64, proof string) (*domain.CrossFIRoute, error) {
	if sourceFI == "" || targetFI == "" {
		return nil, errors.New(errors.CodeValidation, "source and target fi ids are required")
	}
	if sourceFI == targetFI {
		return nil, errors.New(errors.CodeValidation, "source and target fi must differ")
	}
	if fromWallet == "" || toWallet == "" {
		return nil, errors.New(errors.CodeValidation, "from and to wallets are required")
	}
	if amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if _, err := s.institutions.FindByID(ctx, sourceFI); err != nil {
		return nil, err
	}
	if _, err := s.institutions.FindByID(ctx, targetFI); err != nil {
		return nil, err
	}

	txID := "xfi-" + uuid.NewString()
	encoded := domain.EncodeCrossFIWallet(toWallet, targetFI)
	entry := &domain.LedgerEntry{
		ID:            "led-" + uuid.NewString(),
		TransactionID: txID,
		FIID:          sourceFI,
		FromWallet:    fromWallet,
		ToWallet:      encoded,
		Amount:        amount,
		Type:          domain.EntryCrossFITransfer,
		Timestamp:     time.Now(),
	}
	route := &domain.CrossFIRoute{
		TransactionID: txID,
		SourceFI:      sourceFI,
		TargetFI:      targetFI,
		FromWallet:    fromWallet,
		ToWallet:      encoded,
		Amount:        amount,
		Proof:         proof,
		CreatedAt:     entry.Timestamp,
	}
	// Entry and route commit together so the intent never exists in the
	// ledger without being servable via PendingForTarget.
	if err := s.store.Route(ctx, entry, route); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CrossFIRoutes.Inc()
	}
	s.logger.InfoContext(ctx, "cross-fi transfer routed",
		"transaction_id", txID,
		"source_fi", sourceFI,
		"target_fi", targetFI,
		"amount", amount)
	return route, nil
}

// PendingForTarget supports the pull model: a target FI polls for
// transfers addressed to it.
func (s *Service) PendingForTarget(ctx context.Context, fiID string) ([]*domain.CrossFIRoute, error) {
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	if _, err := s.institutions.FindByID(ctx, fiID); err != nil {
		return nil, err
	}
	return s.store.PendingForTarget(ctx, fiID)
}

func (s *Service) Entries(ctx context.Context, limit int) ([]*domain.LedgerEntry, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) EntriesByFI(ctx context.Context, fiID string, limit int) ([]*domain.LedgerEntry, error) {
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	return s.store.ListByFI(ctx, fiID, limit)
}

func (s *Service) Allocations(ctx context.Context, fiID string) ([]*domain.FundAllocation, error) {
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	return s.store.ListAllocations(ctx, fiID)
}
