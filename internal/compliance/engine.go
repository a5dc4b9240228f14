package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"centralledger/internal/domain"
	"centralledger/internal/platform/metrics"
	"centralledger/pkg/errors"
)

// Violation types surfaced by Evaluate.
const (
	ViolationRuleLimit    = "limit_violation"
	ViolationOfflineLimit = "offline_limit_violation"
	ViolationFrozen       = "frozen_entity"
	ViolationBlacklisted  = "blacklisted_entity"
)

// Engine evaluates transactions against the active rule catalog and the
// screening state. Evaluation never mutates counters; RecordVolume is
// the separate accumulation call made after acceptance.
type Engine struct {
	rules     RuleStore
	status    StatusStore
	screening ScreeningReader
	alerts    AlertSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(rules RuleStore, status StatusStore, screening ScreeningReader, alerts AlertSink, opts ...Option) *Engine {
	e := &Engine{
		rules:     rules,
		status:    status,
		screening: screening,
		alerts:    alerts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input describes one transaction to evaluate. A present DeviceID puts
// the evaluation in iot_device scope; otherwise the wallet is the
// scoped entity.
type Input struct {
	FIID          string
	WalletID      string
	DeviceID      string
	TransactionID string
	Amount        float64
	TxType        domain.TxType
}

// Violation is one failed check. Blocked is per-violation; a blocking
// violation does not stop the remaining rules from evaluating.
type Violation struct {
	Type       string          `json:"type"`
	RuleID     string          `json:"rule_id,omitempty"`
	RuleType   domain.RuleType `json:"rule_type,omitempty"`
	Severity   domain.Severity `json:"severity"`
	LimitValue float64         `json:"limit_value,omitempty"`
	Message    string          `json:"message"`
	Blocked    bool            `json:"blocked"`
}

// Result is the evaluation outcome. Compliant is always !Blocked.
type Result struct {
	Compliant  bool        `json:"compliant"`
	Blocked    bool        `json:"blocked"`
	Violations []Violation `json:"violations"`
}

// Evaluate runs every screening and rule check and returns all
// violations. Identical inputs against unchanged state yield identical
// results.
func (e *Engine) Evaluate(ctx context.Context, in Input) (*Result, error) {
	if in.FIID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	if in.Amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if in.TxType == "" {
		in.TxType = domain.TxOnline
	}
	if in.TxType != domain.TxOnline && in.TxType != domain.TxOffline {
		return nil, errors.Newf(errors.CodeValidation, "unknown transaction type %q", in.TxType)
	}

	scope := domain.TargetWallet
	entityType := domain.EntityWallet
	entityID := in.WalletID
	if in.DeviceID != "" {
		scope = domain.TargetIoTDevice
		entityType = domain.EntityIoTDevice
		entityID = in.DeviceID
	}
	if entityID == "" {
		return nil, errors.New(errors.CodeValidation, "wallet or device id is required")
	}

	var violations []Violation

	frozen, err := e.screening.IsFrozen(ctx, entityType, entityID, in.FIID)
	if err != nil {
		return nil, fmt.Errorf("freeze lookup: %w", err)
	}
	if frozen {
		violations = append(violations, Violation{
			Type:     ViolationFrozen,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%s %s is frozen", entityType, entityID),
			Blocked:  true,
		})
	}

	blacklisted, err := e.screening.IsBlacklisted(ctx, entityType, entityID, in.FIID)
	if err != nil {
		return nil, fmt.Errorf("blacklist lookup: %w", err)
	}
	if blacklisted {
		violations = append(violations, Violation{
			Type:     ViolationBlacklisted,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%s %s is blacklisted", entityType, entityID),
			Blocked:  true,
		})
	}

	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	for _, r := range rules {
		if !r.Matches(scope, entityID) {
			continue
		}
		if r.LimitValue > 0 && in.Amount > r.LimitValue {
			violations = append(violations, Violation{
				Type:       ViolationRuleLimit,
				RuleID:     r.ID,
				RuleType:   r.RuleType,
				Severity:   ruleSeverity(r.RuleType),
				LimitValue: r.LimitValue,
				Message:    fmt.Sprintf("amount %.2f exceeds %s limit %.2f", in.Amount, r.RuleType, r.LimitValue),
				Blocked:    r.RuleType == domain.RuleHardLimit,
			})
		}
		if in.TxType == domain.TxOffline && r.MaxOfflineAmount > 0 && in.Amount > r.MaxOfflineAmount {
			violations = append(violations, Violation{
				Type:       ViolationOfflineLimit,
				RuleID:     r.ID,
				RuleType:   r.RuleType,
				Severity:   domain.SeverityHigh,
				LimitValue: r.MaxOfflineAmount,
				Message:    fmt.Sprintf("offline amount %.2f exceeds max offline amount %.2f", in.Amount, r.MaxOfflineAmount),
				Blocked:    true,
			})
		}
	}

	res := &Result{Violations: violations}
	for _, v := range violations {
		if v.Blocked {
			res.Blocked = true
		}
		e.persistViolation(ctx, in, v)
	}
	res.Compliant = !res.Blocked

	if e.metrics != nil {
		e.metrics.ComplianceEvaluations.Inc()
		if res.Blocked {
			e.metrics.ComplianceBlocked.Inc()
		}
	}
	if res.Blocked {
		e.logger.InfoContext(ctx, "transaction blocked",
			"fi_id", in.FIID,
			"amount", in.Amount,
			"violations", len(violations))
	}
	return res, nil
}

// persistViolation mirrors one violation as an alert. Alert persistence
// is best-effort; a sink failure never changes the evaluation outcome.
func (e *Engine) persistViolation(ctx context.Context, in Input, v Violation) {
	alert := &domain.Alert{
		Type:          v.Type,
		Severity:      v.Severity,
		FIID:          in.FIID,
		WalletID:      in.WalletID,
		DeviceID:      in.DeviceID,
		TransactionID: in.TransactionID,
		Amount:        in.Amount,
		Message:       v.Message,
	}
	if v.RuleID != "" {
		alert.Details = domain.RuleViolationDetails{
			RuleID:     v.RuleID,
			RuleType:   v.RuleType,
			LimitValue: v.LimitValue,
			Amount:     in.Amount,
		}
	}
	if _, err := e.alerts.Raise(ctx, alert); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist violation alert",
			"type", v.Type,
			"fi_id", in.FIID,
			"error", err)
	}
}

func ruleSeverity(rt domain.RuleType) domain.Severity {
	switch rt {
	case domain.RuleHardLimit:
		return domain.SeverityCritical
	case domain.RuleAlertTrigger:
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}

// RecordVolume accumulates accepted transaction volume into the FI's
// rolling counters. Callers invoke it only after the transaction is
// accepted, never from Evaluate.
func (e *Engine) RecordVolume(ctx context.Context, fiID string, amount float64, offline bool) (*domain.ComplianceStatus, error) {
	if fiID == "" {
		return nil, errors.New(errors.CodeValidation, "fi id is required")
	}
	if amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	return e.status.AddVolume(ctx, fiID, amount, offline)
}

func (e *Engine) FlagFI(ctx context.Context, fiID string) error {
	if fiID == "" {
		return errors.New(errors.CodeValidation, "fi id is required")
	}
	return e.status.IncrementFlagged(ctx, fiID)
}

func (e *Engine) StatusFor(ctx context.Context, fiID string) (*domain.ComplianceStatus, error) {
	return e.status.Get(ctx, fiID)
}

func (e *Engine) Statuses(ctx context.Context) ([]*domain.ComplianceStatus, error) {
	return e.status.ListAll(ctx)
}

// CreateRule validates and persists a new rule, active by default.
func (e *Engine) CreateRule(ctx context.Context, r *domain.ComplianceRule) (*domain.ComplianceRule, error) {
	switch r.RuleType {
	case domain.RuleTransactionLimit, domain.RuleOfflineLimit, domain.RuleAlertTrigger, domain.RuleHardLimit:
	default:
		return nil, errors.Newf(errors.CodeValidation, "unknown rule type %q", r.RuleType)
	}
	switch r.TargetType {
	case domain.TargetWallet, domain.TargetIoTDevice, domain.TargetAll:
	default:
		return nil, errors.Newf(errors.CodeValidation, "unknown target type %q", r.TargetType)
	}
	if r.LimitValue < 0 || r.MaxOfflineAmount < 0 {
		return nil, errors.New(errors.CodeValidation, "limits must not be negative")
	}
	if r.LimitValue == 0 && r.MaxOfflineAmount == 0 {
		return nil, errors.New(errors.CodeValidation, "rule must carry at least one limit")
	}

	cp := *r
	cp.ID = "rule-" + uuid.NewString()
	cp.IsActive = true
	cp.CreatedAt = time.Now()
	if err := e.rules.CreateRule(ctx, &cp); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "compliance rule created",
		"rule_id", cp.ID,
		"rule_type", cp.RuleType,
		"target_type", cp.TargetType)
	return &cp, nil
}

func (e *Engine) ListRules(ctx context.Context) ([]*domain.ComplianceRule, error) {
	return e.rules.ListAll(ctx)
}

func (e *Engine) DeactivateRule(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errors.CodeValidation, "rule id is required")
	}
	return e.rules.Deactivate(ctx, id)
}

// ResetDailyCounters and ResetMonthlyCounters back the external
// time-based jobs that own counter windows.
func (e *Engine) ResetDailyCounters(ctx context.Context) error {
	return e.status.ResetDaily(ctx)
}

func (e *Engine) ResetMonthlyCounters(ctx context.Context) error {
	return e.status.ResetMonthly(ctx)
}
