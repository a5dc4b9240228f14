package screening

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

type fakeSink struct {
	mu     sync.Mutex
	raised []*domain.Alert
}

func (f *fakeSink) Raise(_ context.Context, a *domain.Alert) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised = append(f.raised, a)
	return a, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakePublisher) Publish(ev domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

type ServiceSuite struct {
	suite.Suite
	sink      *fakeSink
	publisher *fakePublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.sink = &fakeSink{}
	s.publisher = &fakePublisher{}
	s.service = New(NewInMemory(), s.sink, WithEventPublisher(s.publisher))
}

func (s *ServiceSuite) TestFreezeThenUnfreeze() {
	ctx := context.Background()

	_, err := s.service.Freeze(ctx, domain.EntityWallet, "w1", "fi-a", "suspicious", "analyst-1")
	s.Require().NoError(err)

	frozen, err := s.service.IsFrozen(ctx, domain.EntityWallet, "w1", "fi-a")
	s.Require().NoError(err)
	s.True(frozen)

	// Fi-scoped freeze is invisible under another fi.
	frozen, err = s.service.IsFrozen(ctx, domain.EntityWallet, "w1", "fi-b")
	s.Require().NoError(err)
	s.False(frozen)

	_, err = s.service.Unfreeze(ctx, domain.EntityWallet, "w1", "fi-a", "cleared", "analyst-1")
	s.Require().NoError(err)

	frozen, err = s.service.IsFrozen(ctx, domain.EntityWallet, "w1", "fi-a")
	s.Require().NoError(err)
	s.False(frozen)
}

func (s *ServiceSuite) TestNetworkWideFreezeVisibleUnderAnyFI() {
	ctx := context.Background()

	_, err := s.service.Freeze(ctx, domain.EntityIoTDevice, "dev-1", "", "stolen device", "ops")
	s.Require().NoError(err)

	for _, fi := range []string{"fi-a", "fi-b", ""} {
		frozen, err := s.service.IsFrozen(ctx, domain.EntityIoTDevice, "dev-1", fi)
		s.Require().NoError(err)
		s.True(frozen, "network-wide freeze must match fi %q", fi)
	}
}

func (s *ServiceSuite) TestRepeatFreezeIsLastWriterWinsWithoutSecondAlert() {
	ctx := context.Background()

	_, err := s.service.Freeze(ctx, domain.EntityWallet, "w1", "fi-a", "first", "analyst-1")
	s.Require().NoError(err)
	fa, err := s.service.Freeze(ctx, domain.EntityWallet, "w1", "fi-a", "second", "analyst-2")
	s.Require().NoError(err)
	s.Equal("second", fa.Reason)
	s.Equal("analyst-2", fa.FrozenBy)

	// No transition happened on the repeat, so exactly one alert and one
	// event exist.
	s.Len(s.sink.raised, 1)
	s.Len(s.publisher.events, 1)
}

func (s *ServiceSuite) TestFreezeTransitionsEmitAlertsAndEvents() {
	ctx := context.Background()

	_, err := s.service.Freeze(ctx, domain.EntityWallet, "w1", "fi-a", "laundering", "analyst-1")
	s.Require().NoError(err)
	_, err = s.service.Unfreeze(ctx, domain.EntityWallet, "w1", "fi-a", "cleared", "analyst-1")
	s.Require().NoError(err)

	s.Require().Len(s.sink.raised, 2)
	s.Equal("entity_frozen", s.sink.raised[0].Type)
	s.Equal(domain.SeverityCritical, s.sink.raised[0].Severity)
	s.Equal("entity_unfrozen", s.sink.raised[1].Type)
	s.Equal(domain.SeverityMedium, s.sink.raised[1].Severity)

	details, ok := s.sink.raised[0].Details.(domain.FreezeDetails)
	s.Require().True(ok)
	s.True(details.Frozen)
	s.Equal("analyst-1", details.Actor)

	s.Require().Len(s.publisher.events, 2)
	s.Equal(domain.EventEntityFrozen, s.publisher.events[0].Kind)
	s.Equal(domain.EventEntityUnfrozen, s.publisher.events[1].Kind)
	s.True(s.publisher.events[0].Freeze.Frozen)
	s.False(s.publisher.events[1].Freeze.Frozen)
}

func (s *ServiceSuite) TestUnfreezeWithoutActiveFreeze() {
	_, err := s.service.Unfreeze(context.Background(), domain.EntityWallet, "w1", "fi-a", "", "ops")
	s.True(errors.HasCode(err, errors.CodeNotFound))
}

func (s *ServiceSuite) TestWatchlistUpsertIsIdempotent() {
	ctx := context.Background()

	first, err := s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		FIID:       "fi-a",
		Status:     domain.WatchlistWatching,
		Reason:     "pattern match",
	})
	s.Require().NoError(err)

	second, err := s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		FIID:       "fi-a",
		Status:     domain.WatchlistBlacklisted,
		Reason:     "confirmed",
	})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID, "same key updates in place")
	s.Equal(domain.WatchlistBlacklisted, second.Status)

	_, watchlisted, err := s.service.Counts(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), watchlisted)
}

func (s *ServiceSuite) TestIsBlacklisted() {
	ctx := context.Background()

	blacklisted, err := s.service.IsBlacklisted(ctx, domain.EntityWallet, "w1", "fi-a")
	s.Require().NoError(err)
	s.False(blacklisted)

	_, err = s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		Status:     domain.WatchlistWatching,
	})
	s.Require().NoError(err)

	// Watching is not blacklisted.
	blacklisted, err = s.service.IsBlacklisted(ctx, domain.EntityWallet, "w1", "fi-a")
	s.Require().NoError(err)
	s.False(blacklisted)

	// A global blacklist entry matches any fi.
	_, err = s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		Status:     domain.WatchlistBlacklisted,
	})
	s.Require().NoError(err)

	blacklisted, err = s.service.IsBlacklisted(ctx, domain.EntityWallet, "w1", "fi-b")
	s.Require().NoError(err)
	s.True(blacklisted)
}

func (s *ServiceSuite) TestExpiredBlacklistEntryIgnored() {
	ctx := context.Background()
	expired := time.Now().Add(-time.Hour)

	_, err := s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		FIID:       "fi-a",
		Status:     domain.WatchlistBlacklisted,
		ExpiresAt:  &expired,
	})
	s.Require().NoError(err)

	blacklisted, err := s.service.IsBlacklisted(ctx, domain.EntityWallet, "w1", "fi-a")
	s.Require().NoError(err)
	s.False(blacklisted)
}

func (s *ServiceSuite) TestValidation() {
	ctx := context.Background()

	_, err := s.service.Freeze(ctx, "account", "x", "", "", "")
	s.True(errors.HasCode(err, errors.CodeValidation))

	_, err = s.service.Freeze(ctx, domain.EntityWallet, "", "", "", "")
	s.True(errors.HasCode(err, errors.CodeValidation))

	_, err = s.service.AddToWatchlist(ctx, &domain.WatchlistEntry{
		EntityType: domain.EntityWallet,
		EntityID:   "w1",
		Status:     "shadowbanned",
	})
	s.True(errors.HasCode(err, errors.CodeValidation))
}
