package domain

import "time"

type EventKind string

const (
	EventAllocationMade EventKind = "allocation_made"
	EventEntityFrozen   EventKind = "entity_frozen"
	EventEntityUnfrozen EventKind = "entity_unfrozen"
)

// Event decouples core state changes from outbound FI notifications.
// Core components publish; the dispatcher owns delivery and retry.
type Event struct {
	Kind       EventKind
	FIID       string // owning FI to notify; empty means no single owner
	OccurredAt time.Time

	Allocation *AllocationMade
	Freeze     *FreezeTransition
}

// AllocationMade is published after funds are credited to an FI.
type AllocationMade struct {
	FIID          string
	TransactionID string
	Amount        float64
}

// FreezeTransition is published on freeze and unfreeze alike.
type FreezeTransition struct {
	EntityType EntityType
	EntityID   string
	FIID       string
	Frozen     bool
	Reason     string
	Actor      string
}
