package domain

import "time"

type FIStatus string

const (
	FIStatusActive    FIStatus = "active"
	FIStatusSuspended FIStatus = "suspended"
)

// FinancialInstitution is a participant node holding end-user wallets.
// AllocatedFunds only ever increases, and only through an explicit
// allocation; AvailableBalance moves with allocations and settlements.
type FinancialInstitution struct {
	ID               string
	Name             string
	Status           FIStatus
	Endpoint         string
	PublicKey        string
	AllocatedFunds   float64
	AvailableBalance float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FundAllocation records a Central-Bank to FI credit. Each allocation is
// paired with exactly one allocation ledger entry.
type FundAllocation struct {
	ID            string    `json:"id"`
	FIID          string    `json:"fi_id"`
	TransactionID string    `json:"transaction_id"`
	LedgerEntryID string    `json:"ledger_entry_id"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}
