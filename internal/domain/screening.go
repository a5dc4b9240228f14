package domain

import "time"

type EntityType string

const (
	EntityWallet    EntityType = "wallet"
	EntityIoTDevice EntityType = "iot_device"
)

type WatchlistStatus string

const (
	WatchlistWatching    WatchlistStatus = "watching"
	WatchlistBlacklisted WatchlistStatus = "blacklisted"
)

// WatchlistEntry tracks an entity under observation. Unique per
// (EntityType, EntityID, FIID); writes are idempotent upserts.
type WatchlistEntry struct {
	ID         string          `json:"id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	FIID       string          `json:"fi_id,omitempty"` // empty scopes the entry network-wide
	Status     WatchlistStatus `json:"status"`
	RiskLevel  string          `json:"risk_level,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// FrozenAccount records a freeze transition. One active freeze per
// (EntityType, EntityID, FIID); an empty FIID freezes the entity across
// the whole network.
type FrozenAccount struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	FIID       string     `json:"fi_id,omitempty"`
	IsFrozen   bool       `json:"is_frozen"`
	Reason     string     `json:"reason,omitempty"`
	FrozenBy   string     `json:"frozen_by,omitempty"`
	FrozenAt   time.Time  `json:"frozen_at"`
	UnfrozenAt *time.Time `json:"unfrozen_at,omitempty"`
}
