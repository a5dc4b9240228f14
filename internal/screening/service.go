package screening

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// Service manages freeze and watchlist state. Central-Bank state is
// authoritative: outbound FI notification happens through the event
// dispatcher and its failure never rolls back a transition here.
type Service struct {
	store  Store
	cache  *Cache
	alerts AlertSink
	events EventPublisher
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(cache *Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithEventPublisher(pub EventPublisher) Option {
	return func(s *Service) { s.events = pub }
}

func New(store Store, alerts AlertSink, opts ...Option) *Service {
	svc := &Service{store: store, alerts: alerts, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func validEntityType(t domain.EntityType) bool {
	return t == domain.EntityWallet || t == domain.EntityIoTDevice
}

// Freeze places an active freeze on (entityType, entityID, fiID). An
// empty fiID freezes the entity network-wide. Freezing an already-frozen
// key rewrites reason and actor (last-writer-wins) without emitting a
// second alert, since no transition happened.
func (s *Service) Freeze(ctx context.Context, entityType domain.EntityType, entityID, fiID, reason, actor string) (*domain.FrozenAccount, error) {
	if !validEntityType(entityType) {
		return nil, errors.Newf(errors.CodeValidation, "unknown entity type %q", entityType)
	}
	if entityID == "" {
		return nil, errors.New(errors.CodeValidation, "entity id is required")
	}

	fa := &domain.FrozenAccount{
		EntityType: entityType,
		EntityID:   entityID,
		FIID:       fiID,
		IsFrozen:   true,
		Reason:     reason,
		FrozenBy:   actor,
		FrozenAt:   time.Now(),
	}
	err := s.store.CreateFreeze(ctx, fa)
	if errors.HasCode(err, errors.CodeConflict) {
		if uerr := s.store.UpdateFreeze(ctx, fa); uerr != nil {
			return nil, uerr
		}
		s.cache.Invalidate(ctx, entityType, entityID)
		return fa, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, entityType, entityID)

	s.raiseFreezeAlert(ctx, fa, true)
	s.publishFreezeEvent(fa, true)
	return fa, nil
}

// Unfreeze releases the active freeze for the key. Unfreezing an
// entity that is not frozen fails with CodeNotFound.
func (s *Service) Unfreeze(ctx context.Context, entityType domain.EntityType, entityID, fiID, reason, actor string) (*domain.FrozenAccount, error) {
	if !validEntityType(entityType) {
		return nil, errors.Newf(errors.CodeValidation, "unknown entity type %q", entityType)
	}
	fa, err := s.store.ReleaseFreeze(ctx, entityType, entityID, fiID, time.Now())
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, entityType, entityID)

	fa.Reason = reason
	fa.FrozenBy = actor
	s.raiseFreezeAlert(ctx, fa, false)
	s.publishFreezeEvent(fa, false)
	return fa, nil
}

// IsFrozen reports whether the entity is frozen as seen from fiID. A
// network-wide freeze (empty fi scope) is visible under any fi.
func (s *Service) IsFrozen(ctx context.Context, entityType domain.EntityType, entityID, fiID string) (bool, error) {
	if scopes, ok := s.cache.GetFreezeScopes(ctx, entityType, entityID); ok {
		return scopesMatch(scopes, fiID), nil
	}

	freezes, err := s.store.ActiveFreezes(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}
	scopes := make([]string, 0, len(freezes))
	for _, f := range freezes {
		scopes = append(scopes, f.FIID)
	}
	s.cache.SetFreezeScopes(ctx, entityType, entityID, scopes)
	return scopesMatch(scopes, fiID), nil
}

func scopesMatch(scopes []string, fiID string) bool {
	for _, scope := range scopes {
		if scope == "" || scope == fiID {
			return true
		}
	}
	return false
}

// AddToWatchlist upserts an entry keyed (type, id, fi): repeating the
// call with the same key updates status and metadata in place.
func (s *Service) AddToWatchlist(ctx context.Context, e *domain.WatchlistEntry) (*domain.WatchlistEntry, error) {
	if !validEntityType(e.EntityType) {
		return nil, errors.Newf(errors.CodeValidation, "unknown entity type %q", e.EntityType)
	}
	if e.EntityID == "" {
		return nil, errors.New(errors.CodeValidation, "entity id is required")
	}
	switch e.Status {
	case domain.WatchlistWatching, domain.WatchlistBlacklisted:
	default:
		return nil, errors.Newf(errors.CodeValidation, "unknown watchlist status %q", e.Status)
	}
	return s.store.UpsertWatchlist(ctx, e)
}

// IsBlacklisted reports whether any matching watchlist entry (global or
// fi-scoped) is blacklisted and unexpired.
func (s *Service) IsBlacklisted(ctx context.Context, entityType domain.EntityType, entityID, fiID string) (bool, error) {
	entries, err := s.store.WatchlistFor(ctx, entityType, entityID, fiID)
	if err != nil {
		return false, err
	}
	now := time.Now()
	for _, e := range entries {
		if e.Status != domain.WatchlistBlacklisted {
			continue
		}
		if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// Counts feeds the compliance dashboard.
func (s *Service) Counts(ctx context.Context) (frozen, watchlisted int64, err error) {
	frozen, err = s.store.CountFrozen(ctx)
	if err != nil {
		return 0, 0, err
	}
	watchlisted, err = s.store.CountWatchlist(ctx)
	if err != nil {
		return 0, 0, err
	}
	return frozen, watchlisted, nil
}

func (s *Service) raiseFreezeAlert(ctx context.Context, fa *domain.FrozenAccount, frozen bool) {
	alertType, severity, verb := "entity_unfrozen", domain.SeverityMedium, "unfrozen"
	if frozen {
		alertType, severity, verb = "entity_frozen", domain.SeverityCritical, "frozen"
	}
	alert := &domain.Alert{
		Type:     alertType,
		Severity: severity,
		FIID:     fa.FIID,
		Message:  fmt.Sprintf("%s %s %s: %s", fa.EntityType, fa.EntityID, verb, fa.Reason),
		Details: domain.FreezeDetails{
			EntityType: fa.EntityType,
			EntityID:   fa.EntityID,
			Actor:      fa.FrozenBy,
			Reason:     fa.Reason,
			Frozen:     frozen,
		},
	}
	if fa.EntityType == domain.EntityWallet {
		alert.WalletID = fa.EntityID
	} else {
		alert.DeviceID = fa.EntityID
	}
	if _, err := s.alerts.Raise(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "freeze alert not persisted", "entity_id", fa.EntityID, "error", err)
	}
}

func (s *Service) publishFreezeEvent(fa *domain.FrozenAccount, frozen bool) {
	if s.events == nil {
		return
	}
	kind := domain.EventEntityUnfrozen
	if frozen {
		kind = domain.EventEntityFrozen
	}
	s.events.Publish(domain.Event{
		Kind:       kind,
		FIID:       fa.FIID,
		OccurredAt: time.Now(),
		Freeze: &domain.FreezeTransition{
			EntityType: fa.EntityType,
			EntityID:   fa.EntityID,
			FIID:       fa.FIID,
			Frozen:     frozen,
			Reason:     fa.Reason,
			Actor:      fa.FrozenBy,
		},
	})
}
