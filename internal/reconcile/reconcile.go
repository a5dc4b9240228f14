// Package reconcile compares the Central Bank's allocated-funds ground
// truth against the balances FI nodes report live.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"centralledger/internal/domain"
	"centralledger/internal/ficlient"
	"centralledger/internal/platform/metrics"
)

// balancedEpsilon absorbs floating-point drift at the wire boundary.
var balancedEpsilon = decimal.NewFromFloat(0.01)

// StatsFetcher is the outbound slice of the FI client the reconciler
// needs.
type StatsFetcher interface {
	FetchStats(ctx context.Context, endpoint string) (*ficlient.Stats, error)
}

// InstitutionLister enumerates registered FIs.
type InstitutionLister interface {
	List(ctx context.Context) ([]*domain.FinancialInstitution, error)
}

// FIReport is one FI's contribution to a reconciliation run. An
// unreachable FI contributes zero and is flagged, never aborting the
// aggregate.
type FIReport struct {
	FIID             string  `json:"fi_id"`
	Name             string  `json:"name"`
	AllocatedFunds   float64 `json:"allocated_funds"`
	AvailableBalance float64 `json:"available_balance"`
	InUserHands      float64 `json:"in_user_hands"`
	Reachable        bool    `json:"reachable"`
}

// Report is the outcome of one reconciliation run. It is observational
// only; nothing is auto-corrected.
type Report struct {
	RunAt          time.Time  `json:"run_at"`
	TotalAllocated float64    `json:"total_allocated"`
	TotalReported  float64    `json:"total_reported"`
	Discrepancy    float64    `json:"discrepancy"`
	IsBalanced     bool       `json:"is_balanced"`
	FIs            []FIReport `json:"fis"`
	Unreachable    []string   `json:"unreachable"`
}

type Reconciler struct {
	institutions InstitutionLister
	stats        StatsFetcher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func New(institutions InstitutionLister, stats StatsFetcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		institutions: institutions,
		stats:        stats,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run queries every FI concurrently and sums Central-Bank allocations
// against FI-reported money. Each outbound call is independently
// timed out by the stats client; a slow or down FI degrades only its
// own contribution.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	fis, err := r.institutions.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]FIReport, len(fis))
	var mu sync.Mutex
	var unreachable []string

	g, gctx := errgroup.WithContext(ctx)
	for i, fi := range fis {
		g.Go(func() error {
			rep := FIReport{
				FIID:           fi.ID,
				Name:           fi.Name,
				AllocatedFunds: fi.AllocatedFunds,
			}
			stats, err := r.stats.FetchStats(gctx, fi.Endpoint)
			if err != nil {
				r.logger.WarnContext(gctx, "fi unreachable during reconciliation",
					"fi_id", fi.ID,
					"endpoint", fi.Endpoint,
					"error", err)
				mu.Lock()
				unreachable = append(unreachable, fi.ID)
				mu.Unlock()
			} else {
				rep.Reachable = true
				rep.AvailableBalance = stats.AvailableBalance
				rep.InUserHands = stats.InUserHands
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	allocated := decimal.Zero
	reported := decimal.Zero
	for _, rep := range reports {
		allocated = allocated.Add(decimal.NewFromFloat(rep.AllocatedFunds))
		reported = reported.
			Add(decimal.NewFromFloat(rep.AvailableBalance)).
			Add(decimal.NewFromFloat(rep.InUserHands))
	}
	drift := allocated.Sub(reported).Abs()

	report := &Report{
		RunAt:          time.Now(),
		TotalAllocated: allocated.InexactFloat64(),
		TotalReported:  reported.InexactFloat64(),
		Discrepancy:    drift.InexactFloat64(),
		IsBalanced:     drift.LessThan(balancedEpsilon),
		FIs:            reports,
		Unreachable:    unreachable,
	}

	if r.metrics != nil {
		r.metrics.ReconciliationRuns.Inc()
		r.metrics.ReconciliationDrift.Set(report.Discrepancy)
	}
	r.logger.InfoContext(ctx, "money supply reconciled",
		"total_allocated", report.TotalAllocated,
		"total_reported", report.TotalReported,
		"discrepancy", report.Discrepancy,
		"balanced", report.IsBalanced,
		"unreachable", len(unreachable))
	return report, nil
}
