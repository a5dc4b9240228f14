package events

import (
	"context"
	"log/slog"
	"time"

	"centralledger/internal/domain"
	"centralledger/internal/platform/metrics"
)

// Notifier is the outbound client slice the dispatcher drives.
type Notifier interface {
	NotifyAllocation(ctx context.Context, endpoint string, a domain.AllocationMade) error
	NotifyFreezeTransition(ctx context.Context, endpoint string, f domain.FreezeTransition) error
}

// EndpointResolver maps an FI id to its callback endpoint.
type EndpointResolver interface {
	FindByID(ctx context.Context, id string) (*domain.FinancialInstitution, error)
}

// Dispatcher consumes published events and delivers best-effort FI
// notifications. It is the only background goroutine owner in the
// process; a notification that exhausts its retries is dropped and
// logged, never replayed into core state.
type Dispatcher struct {
	events   <-chan domain.Event
	notifier Notifier
	resolver EndpointResolver
	attempts int
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRetry sets the delivery attempt count and the base backoff
// between attempts. Backoff doubles per retry.
func WithRetry(attempts int, backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.attempts = attempts
		}
		if backoff > 0 {
			d.backoff = backoff
		}
	}
}

func NewDispatcher(events <-chan domain.Event, notifier Notifier, resolver EndpointResolver, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		events:   events,
		notifier: notifier,
		resolver: resolver,
		attempts: 3,
		backoff:  200 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run consumes events until ctx is cancelled. Call it in its own
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev domain.Event) {
	if ev.FIID == "" {
		// No single owning FI to notify; the state change is already
		// authoritative on the Central-Bank side.
		return
	}
	fi, err := d.resolver.FindByID(ctx, ev.FIID)
	if err != nil {
		d.logger.WarnContext(ctx, "cannot resolve fi for notification",
			"kind", ev.Kind,
			"fi_id", ev.FIID,
			"error", err)
		return
	}

	backoff := d.backoff
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err = d.notify(ctx, fi.Endpoint, ev)
		if err == nil {
			return
		}
		if attempt < d.attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	if d.metrics != nil {
		d.metrics.NotifyFailures.Inc()
	}
	d.logger.ErrorContext(ctx, "notification dropped after retries",
		"kind", ev.Kind,
		"fi_id", ev.FIID,
		"attempts", d.attempts,
		"error", err)
}

func (d *Dispatcher) notify(ctx context.Context, endpoint string, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventAllocationMade:
		if ev.Allocation == nil {
			return nil
		}
		return d.notifier.NotifyAllocation(ctx, endpoint, *ev.Allocation)
	case domain.EventEntityFrozen, domain.EventEntityUnfrozen:
		if ev.Freeze == nil {
			return nil
		}
		return d.notifier.NotifyFreezeTransition(ctx, endpoint, *ev.Freeze)
	default:
		d.logger.Warn("unknown event kind", "kind", ev.Kind)
		return nil
	}
}
