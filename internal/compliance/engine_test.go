package compliance

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

type fakeScreening struct {
	frozen      map[string]bool
	blacklisted map[string]bool
}

func (f *fakeScreening) key(t domain.EntityType, id string) string { return string(t) + ":" + id }

func (f *fakeScreening) IsFrozen(_ context.Context, t domain.EntityType, id, _ string) (bool, error) {
	return f.frozen[f.key(t, id)], nil
}

func (f *fakeScreening) IsBlacklisted(_ context.Context, t domain.EntityType, id, _ string) (bool, error) {
	return f.blacklisted[f.key(t, id)], nil
}

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

type EngineSuite struct {
	suite.Suite
	rules     *InMemoryRuleStore
	status    *InMemoryStatusStore
	screening *fakeScreening
	sink      *fakeSink
	engine    *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.rules = NewInMemoryRules()
	s.status = NewInMemoryStatus()
	s.screening = &fakeScreening{frozen: map[string]bool{}, blacklisted: map[string]bool{}}
	s.sink = &fakeSink{}
	s.engine = New(s.rules, s.status, s.screening, s.sink)
}

func (s *EngineSuite) addRule(r domain.ComplianceRule) *domain.ComplianceRule {
	created, err := s.engine.CreateRule(context.Background(), &r)
	s.Require().NoError(err)
	return created
}

func (s *EngineSuite) TestSoftLimitViolationDoesNotBlock() {
	s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleTransactionLimit,
		TargetType: domain.TargetWallet,
		LimitValue: 100,
	})

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 150, TxType: domain.TxOnline,
	})
	s.Require().NoError(err)
	s.Require().Len(res.Violations, 1)
	s.False(res.Blocked)
	s.True(res.Compliant)
	s.Equal(ViolationRuleLimit, res.Violations[0].Type)
	s.Equal(domain.SeverityMedium, res.Violations[0].Severity)

	s.Require().Len(s.sink.raised, 1)
	details, ok := s.sink.raised[0].Details.(domain.RuleViolationDetails)
	s.Require().True(ok)
	s.Equal(float64(100), details.LimitValue)
}

func (s *EngineSuite) TestHardLimitBlocks() {
	s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleHardLimit,
		TargetType: domain.TargetAll,
		LimitValue: 1000,
	})

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 5000,
	})
	s.Require().NoError(err)
	s.True(res.Blocked)
	s.False(res.Compliant)
	s.Require().Len(res.Violations, 1)
	s.True(res.Violations[0].Blocked)
	s.Equal(domain.SeverityCritical, res.Violations[0].Severity)
}

func (s *EngineSuite) TestFrozenEntityStillEvaluatesMonetaryRules() {
	s.screening.frozen["wallet:wallet1"] = true
	s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleTransactionLimit,
		TargetType: domain.TargetWallet,
		LimitValue: 100,
	})

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 150,
	})
	s.Require().NoError(err)
	// Frozen blocks, but the limit violation still surfaces alongside it.
	s.True(res.Blocked)
	s.Require().Len(res.Violations, 2)
	s.Equal(ViolationFrozen, res.Violations[0].Type)
	s.Equal(ViolationRuleLimit, res.Violations[1].Type)
}

func (s *EngineSuite) TestDeviceIDSelectsIoTScope() {
	s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleTransactionLimit,
		TargetType: domain.TargetIoTDevice,
		LimitValue: 50,
	})

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", DeviceID: "dev-1", Amount: 75,
	})
	s.Require().NoError(err)
	s.Len(res.Violations, 1)

	// Same amount without a device id is wallet-scoped and clean.
	res, err = s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 75,
	})
	s.Require().NoError(err)
	s.Empty(res.Violations)
}

func (s *EngineSuite) TestOfflineOverMaxAlwaysBlocks() {
	s.addRule(domain.ComplianceRule{
		RuleType:         domain.RuleOfflineLimit,
		TargetType:       domain.TargetAll,
		LimitValue:       10000,
		MaxOfflineAmount: 200,
	})

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 300, TxType: domain.TxOffline,
	})
	s.Require().NoError(err)
	s.True(res.Blocked)
	s.Require().Len(res.Violations, 1)
	s.Equal(ViolationOfflineLimit, res.Violations[0].Type)
	s.Equal(domain.SeverityHigh, res.Violations[0].Severity)

	// Online traffic ignores the offline cap.
	res, err = s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 300, TxType: domain.TxOnline,
	})
	s.Require().NoError(err)
	s.Empty(res.Violations)
}

func (s *EngineSuite) TestEvaluateIsIdempotent() {
	s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleTransactionLimit,
		TargetType: domain.TargetWallet,
		LimitValue: 100,
	})
	in := Input{FIID: "fi-a", WalletID: "wallet1", Amount: 150}

	first, err := s.engine.Evaluate(context.Background(), in)
	s.Require().NoError(err)
	second, err := s.engine.Evaluate(context.Background(), in)
	s.Require().NoError(err)
	s.Equal(first, second)

	// Counters are untouched by evaluation.
	st, err := s.engine.StatusFor(context.Background(), "fi-a")
	s.Require().NoError(err)
	s.Zero(st.DailyVolume)
}

func (s *EngineSuite) TestRecordVolumeAccumulates() {
	ctx := context.Background()

	st, err := s.engine.RecordVolume(ctx, "fi-a", 100, false)
	s.Require().NoError(err)
	s.Equal(float64(100), st.DailyVolume)

	st, err = s.engine.RecordVolume(ctx, "fi-a", 50, true)
	s.Require().NoError(err)
	s.Equal(float64(150), st.DailyVolume)
	s.Equal(float64(150), st.MonthlyVolume)
	s.Equal(1, st.OfflineTxCount)

	s.Require().NoError(s.engine.ResetDailyCounters(ctx))
	st, err = s.engine.StatusFor(ctx, "fi-a")
	s.Require().NoError(err)
	s.Zero(st.DailyVolume)
	s.Equal(float64(150), st.MonthlyVolume)
}

func (s *EngineSuite) TestCreateRuleValidation() {
	_, err := s.engine.CreateRule(context.Background(), &domain.ComplianceRule{
		RuleType: "unknown", TargetType: domain.TargetAll, LimitValue: 1,
	})
	s.True(errors.HasCode(err, errors.CodeValidation))

	_, err = s.engine.CreateRule(context.Background(), &domain.ComplianceRule{
		RuleType: domain.RuleHardLimit, TargetType: domain.TargetAll,
	})
	s.True(errors.HasCode(err, errors.CodeValidation))
}

func (s *EngineSuite) TestDeactivatedRuleNoLongerEvaluates() {
	created := s.addRule(domain.ComplianceRule{
		RuleType:   domain.RuleHardLimit,
		TargetType: domain.TargetAll,
		LimitValue: 100,
	})
	s.Require().NoError(s.engine.DeactivateRule(context.Background(), created.ID))

	res, err := s.engine.Evaluate(context.Background(), Input{
		FIID: "fi-a", WalletID: "wallet1", Amount: 500,
	})
	s.Require().NoError(err)
	s.Empty(res.Violations)
}
