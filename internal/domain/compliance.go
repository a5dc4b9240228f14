package domain

import "time"

type RuleType string

const (
	RuleTransactionLimit RuleType = "transaction_limit"
	RuleOfflineLimit     RuleType = "offline_limit"
	RuleAlertTrigger     RuleType = "alert_trigger"
	RuleHardLimit        RuleType = "hard_limit"
)

type TargetType string

const (
	TargetWallet    TargetType = "wallet"
	TargetIoTDevice TargetType = "iot_device"
	TargetAll       TargetType = "all"
)

type TxType string

const (
	TxOnline  TxType = "online"
	TxOffline TxType = "offline"
)

// ComplianceRule is a limit rule evaluated against every transaction.
// All active matching rules evaluate; there is no short-circuit.
type ComplianceRule struct {
	ID               string     `json:"id"`
	RuleType         RuleType   `json:"rule_type"`
	TargetType       TargetType `json:"target_type"`
	TargetID         string     `json:"target_id,omitempty"` // empty matches every entity of TargetType
	LimitValue       float64    `json:"limit_value"`
	DailyLimit       float64    `json:"daily_limit,omitempty"`
	MonthlyLimit     float64    `json:"monthly_limit,omitempty"`
	MaxOfflineAmount float64    `json:"max_offline_amount,omitempty"`
	MaxOfflineCount  int        `json:"max_offline_count,omitempty"`
	IsActive         bool       `json:"is_active"`
	Priority         int        `json:"priority"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Matches reports whether the rule applies to the given scope and entity.
func (r ComplianceRule) Matches(scope TargetType, entityID string) bool {
	if r.TargetType != scope && r.TargetType != TargetAll {
		return false
	}
	return r.TargetID == "" || r.TargetID == entityID
}

// ComplianceStatus holds per-FI rolling counters. Daily and monthly
// windows are reset by external time-based jobs, not by the engine.
type ComplianceStatus struct {
	FIID           string    `json:"fi_id"`
	DailyVolume    float64   `json:"daily_volume"`
	MonthlyVolume  float64   `json:"monthly_volume"`
	OfflineTxCount int       `json:"offline_tx_count"`
	FlaggedCount   int       `json:"flagged_count"`
	Score          float64   `json:"score"`
	UpdatedAt      time.Time `json:"updated_at"`
}
