package domain

import "time"

// Nullifier is a one-time spend token derived from a value's serial
// number. Global uniqueness is the double-spend guard: a second sighting
// of the same nullifier is by definition a reuse attempt.
type Nullifier struct {
	Value         string    `json:"value"`
	FIID          string    `json:"fi_id"`
	TransactionID string    `json:"transaction_id"`
	SerialNumber  string    `json:"serial_number,omitempty"`
	Amount        float64   `json:"amount"`
	RegisteredAt  time.Time `json:"registered_at"`
}
