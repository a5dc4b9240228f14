package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"centralledger/internal/domain"
)

// Monitor is the heuristic engine evaluated per incoming transaction
// descriptor. It is advisory only: it raises alerts and never blocks.
type Monitor struct {
	rules  RuleStore
	alerts *Service
	logger *slog.Logger
}

func NewMonitor(rules RuleStore, alerts *Service, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{rules: rules, alerts: alerts, logger: logger}
}

// TxDescriptor is the monitor's view of a transaction.
type TxDescriptor struct {
	FIID          string
	WalletID      string
	DeviceID      string
	TransactionID string
	Amount        float64
	NewDevice     bool
}

// Inspect runs every active catalog rule against the descriptor. Each
// trigger yields one alert; multiple rules may fire for one transaction.
// Errors are logged, never propagated to the transaction path.
func (m *Monitor) Inspect(ctx context.Context, tx TxDescriptor) []*domain.Alert {
	rules, err := m.rules.ListActiveRules(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "monitor catalog unavailable", "error", err)
		return nil
	}

	var raised []*domain.Alert
	for _, rule := range rules {
		message, fired := m.match(rule, tx)
		if !fired {
			continue
		}
		a, err := m.alerts.Raise(ctx, &domain.Alert{
			Type:          rule.ConditionType,
			Severity:      rule.Severity,
			FIID:          tx.FIID,
			WalletID:      tx.WalletID,
			DeviceID:      tx.DeviceID,
			TransactionID: tx.TransactionID,
			Amount:        tx.Amount,
			Message:       message,
			Details: domain.MonitorTriggerDetails{
				ConditionType: rule.ConditionType,
				Threshold:     rule.ThresholdValue,
				Amount:        tx.Amount,
				WindowMinutes: rule.TimeWindowMinutes,
			},
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "monitor alert not persisted",
				"condition", rule.ConditionType, "error", err)
			continue
		}
		raised = append(raised, a)
	}
	return raised
}

func (m *Monitor) match(rule *domain.AlertRule, tx TxDescriptor) (string, bool) {
	switch rule.ConditionType {
	case domain.ConditionSingleAmount:
		if tx.Amount >= rule.ThresholdValue {
			return fmt.Sprintf("transaction of %.2f meets single-amount threshold %.2f",
				tx.Amount, rule.ThresholdValue), true
		}
	case domain.ConditionRoundAmounts:
		// Decimal arithmetic: dividing float64 amounts misclassifies
		// values like 0.3/0.1.
		amount := decimal.NewFromFloat(tx.Amount)
		threshold := decimal.NewFromFloat(rule.ThresholdValue)
		if threshold.IsPositive() && amount.GreaterThanOrEqual(threshold) && amount.Mod(threshold).IsZero() {
			return fmt.Sprintf("transaction of %.2f is an exact multiple of %.2f",
				tx.Amount, rule.ThresholdValue), true
		}
	case domain.ConditionNewDeviceHighValue:
		if tx.NewDevice && tx.Amount >= rule.ThresholdValue {
			return fmt.Sprintf("new device moved %.2f at or above threshold %.2f",
				tx.Amount, rule.ThresholdValue), true
		}
	}
	return "", false
}

// SeedDefaultRules installs the stock catalog when none exists yet.
func SeedDefaultRules(ctx context.Context, rules RuleStore) error {
	existing, err := rules.ListActiveRules(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []*domain.AlertRule{
		{ID: "single-amount-10k", ConditionType: domain.ConditionSingleAmount, ThresholdValue: 10000, Severity: domain.SeverityHigh, IsActive: true},
		{ID: "round-amount-1k", ConditionType: domain.ConditionRoundAmounts, ThresholdValue: 1000, Severity: domain.SeverityMedium, IsActive: true},
		{ID: "new-device-5k", ConditionType: domain.ConditionNewDeviceHighValue, ThresholdValue: 5000, Severity: domain.SeverityHigh, IsActive: true},
	}
	for _, r := range defaults {
		if err := rules.PutRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
