package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"centralledger/internal/domain"
	"centralledger/internal/platform/metrics"
	"centralledger/pkg/errors"
)

// Service is the write/triage surface for alerts. Raising is
// append-only and deliberately unde-duplicated: repeated violations
// produce repeated alerts, trading noise for auditability.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Raise persists the alert, assigning id and timestamp.
func (s *Service) Raise(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	if a.Type == "" {
		return nil, errors.New(errors.CodeValidation, "alert type is required")
	}
	switch a.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		return nil, errors.Newf(errors.CodeValidation, "unknown severity %q", a.Severity)
	}

	cp := *a
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.IsRead = false
	cp.IsResolved = false
	if err := s.store.Append(ctx, &cp); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AlertsRaised.WithLabelValues(string(cp.Severity)).Inc()
	}
	return &cp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Alert, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*domain.Alert, error) {
	return s.store.List(ctx, f)
}

// MarkRead is an idempotent flip; marking an already-read alert is a
// no-op success.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.SetRead(ctx, id)
}

// Resolve is an idempotent flip, like MarkRead. Alerts are never
// deleted.
func (s *Service) Resolve(ctx context.Context, id string) error {
	return s.store.SetResolved(ctx, id)
}

func (s *Service) CountUnresolved(ctx context.Context) (int64, error) {
	return s.store.CountUnresolved(ctx)
}
