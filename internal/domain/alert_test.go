package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlertJSONCarriesDetailsEnvelope(t *testing.T) {
	a := Alert{
		ID:       "alr-1",
		Type:     "rule_violation",
		Severity: SeverityMedium,
		FIID:     "fi-1",
		Amount:   150,
		Message:  "limit exceeded",
		Details: RuleViolationDetails{
			RuleID:     "rule-1",
			RuleType:   RuleTransactionLimit,
			LimitValue: 100,
			Amount:     150,
		},
		CreatedAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var wire struct {
		Details struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Equal(t, "rule_violation", wire.Details.Kind)

	var decoded Alert
	require.NoError(t, json.Unmarshal(raw, &decoded))
	d, ok := decoded.Details.(RuleViolationDetails)
	require.True(t, ok)
	require.Equal(t, "rule-1", d.RuleID)
	require.Equal(t, float64(100), d.LimitValue)
}

func TestAlertJSONOpaqueDetailsUseSameEnvelope(t *testing.T) {
	a := Alert{
		ID:      "alr-2",
		Type:    "custom",
		Message: "forwarded",
		Details: OpaqueDetails{Kind: "velocity_spike", Raw: json.RawMessage(`{"count":9}`)},
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var wire struct {
		Details struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Equal(t, "velocity_spike", wire.Details.Kind)
	require.JSONEq(t, `{"count":9}`, string(wire.Details.Data))

	var decoded Alert
	require.NoError(t, json.Unmarshal(raw, &decoded))
	o, ok := decoded.Details.(OpaqueDetails)
	require.True(t, ok)
	require.Equal(t, "velocity_spike", o.Kind)
}

func TestAlertJSONOmitsNilDetails(t *testing.T) {
	raw, err := json.Marshal(Alert{ID: "alr-3", Message: "no details"})
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"details"`)

	var decoded Alert
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Details)
}
