package domain

import (
	"encoding/json"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is append-only: repeated violations intentionally generate
// repeated alerts. IsRead and IsResolved are idempotent flips; alerts are
// never deleted.
type Alert struct {
	ID            string       `json:"id"`
	Type          string       `json:"type"`
	Severity      Severity     `json:"severity"`
	FIID          string       `json:"fi_id,omitempty"`
	WalletID      string       `json:"wallet_id,omitempty"`
	DeviceID      string       `json:"device_id,omitempty"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Amount        float64      `json:"amount,omitempty"`
	Message       string       `json:"message"`
	Details       AlertDetails `json:"details,omitempty"`
	IsRead        bool         `json:"is_read"`
	IsResolved    bool         `json:"is_resolved"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AlertDetails is a tagged union of per-alert-type detail shapes.
// Unknown kinds round-trip through OpaqueDetails.
type AlertDetails interface {
	DetailsKind() string
}

// MarshalJSON keeps the kind-tagged envelope on every serialization of
// an alert, storage and API alike, so consumers can tell detail shapes
// apart without guessing from field names.
func (a Alert) MarshalJSON() ([]byte, error) {
	var details json.RawMessage
	if a.Details != nil {
		d, err := MarshalDetails(a.Details)
		if err != nil {
			return nil, err
		}
		details = d
	}
	type plain Alert
	return json.Marshal(struct {
		plain
		Details json.RawMessage `json:"details,omitempty"`
	}{plain(a), details})
}

func (a *Alert) UnmarshalJSON(data []byte) error {
	type plain Alert
	aux := struct {
		*plain
		Details json.RawMessage `json:"details"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := UnmarshalDetails(aux.Details)
	if err != nil {
		return err
	}
	a.Details = d
	return nil
}

type RuleViolationDetails struct {
	RuleID     string   `json:"rule_id"`
	RuleType   RuleType `json:"rule_type"`
	LimitValue float64  `json:"limit_value"`
	Amount     float64  `json:"amount"`
}

func (RuleViolationDetails) DetailsKind() string { return "rule_violation" }

type MonitorTriggerDetails struct {
	ConditionType string  `json:"condition_type"`
	Threshold     float64 `json:"threshold"`
	Amount        float64 `json:"amount"`
	WindowMinutes int     `json:"window_minutes,omitempty"`
}

func (MonitorTriggerDetails) DetailsKind() string { return "monitor_trigger" }

type FreezeDetails struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Actor      string     `json:"actor"`
	Reason     string     `json:"reason"`
	Frozen     bool       `json:"frozen"`
}

func (FreezeDetails) DetailsKind() string { return "freeze" }

// OpaqueDetails preserves payloads whose kind this build does not know.
type OpaqueDetails struct {
	Kind string          `json:"kind"`
	Raw  json.RawMessage `json:"raw"`
}

func (o OpaqueDetails) DetailsKind() string { return o.Kind }

type detailsEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalDetails serializes details under a kind tag. Nil details encode
// as null.
func MarshalDetails(d AlertDetails) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	if o, ok := d.(OpaqueDetails); ok {
		return json.Marshal(detailsEnvelope{Kind: o.Kind, Data: o.Raw})
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(detailsEnvelope{Kind: d.DetailsKind(), Data: data})
}

// UnmarshalDetails restores a tagged detail payload, falling back to
// OpaqueDetails for kinds introduced after this build.
func UnmarshalDetails(raw []byte) (AlertDetails, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env detailsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "rule_violation":
		var d RuleViolationDetails
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case "monitor_trigger":
		var d MonitorTriggerDetails
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case "freeze":
		var d FreezeDetails
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return OpaqueDetails{Kind: env.Kind, Raw: env.Data}, nil
	}
}

// Monitor condition types. The monitor is advisory only and never blocks.
const (
	ConditionSingleAmount       = "single_amount"
	ConditionRoundAmounts       = "round_amounts"
	ConditionNewDeviceHighValue = "new_device_high_value"
)

// AlertRule is a heuristic in the transaction monitor's catalog,
// independent of the compliance rule engine.
type AlertRule struct {
	ID                string
	ConditionType     string
	ThresholdValue    float64
	ThresholdCount    int
	TimeWindowMinutes int
	Severity          Severity
	IsActive          bool
}
