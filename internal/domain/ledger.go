package domain

import (
	"fmt"
	"strings"
	"time"
)

type EntryType string

const (
	EntryAllocation      EntryType = "allocation"
	EntryTransfer        EntryType = "transfer"
	EntryCrossFITransfer EntryType = "cross_fi_transfer"
	EntryIoTOffline      EntryType = "iot_offline"
)

// ValidEntryType reports whether t is one of the known ledger entry types.
func ValidEntryType(t EntryType) bool {
	switch t {
	case EntryAllocation, EntryTransfer, EntryCrossFITransfer, EntryIoTOffline:
		return true
	}
	return false
}

// LedgerEntry is an immutable, append-only record. Entries are never
// updated or deleted; MonotonicCounter is assigned by the store on append.
type LedgerEntry struct {
	ID               string    `json:"id"`
	TransactionID    string    `json:"transaction_id"`
	FIID             string    `json:"fi_id"`
	FromWallet       string    `json:"from_wallet,omitempty"`
	ToWallet         string    `json:"to_wallet,omitempty"`
	Amount           float64   `json:"amount"`
	Type             EntryType `json:"type"`
	DeviceID         string    `json:"device_id,omitempty"`
	MonotonicCounter uint64    `json:"monotonic_counter"`
	Nullifier        string    `json:"nullifier,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// CrossFIRoute is the routing descriptor returned when a cross-FI transfer
// is recorded. It is a record of intent: balances do not move and the
// target FI is not contacted.
type CrossFIRoute struct {
	TransactionID string    `json:"transaction_id"`
	SourceFI      string    `json:"source_fi"`
	TargetFI      string    `json:"target_fi"`
	FromWallet    string    `json:"from_wallet"`
	ToWallet      string    `json:"to_wallet"` // encoded as wallet@targetFI
	Amount        float64   `json:"amount"`
	Proof         string    `json:"proof,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EncodeCrossFIWallet renders the destination of a cross-FI transfer as
// wallet@targetFI so the ledger row alone identifies the receiving node.
func EncodeCrossFIWallet(wallet, targetFI string) string {
	return fmt.Sprintf("%s@%s", wallet, targetFI)
}

// DecodeCrossFIWallet splits a wallet@targetFI destination. ok is false
// when the value carries no FI suffix.
func DecodeCrossFIWallet(encoded string) (wallet, targetFI string, ok bool) {
	i := strings.LastIndex(encoded, "@")
	if i <= 0 || i == len(encoded)-1 {
		return "", "", false
	}
	return encoded[:i], encoded[i+1:], true
}
