package httptransport

import (
	"net/http"
	"time"

	"centralledger/internal/domain"
	"centralledger/internal/platform/middleware"
)

type freezeRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	FIID       string `json:"fi_id"` // empty freezes network-wide
	Reason     string `json:"reason"`
}

func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	var req freezeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.GetActor(r.Context())
	fa, err := h.screening.Freeze(r.Context(), domain.EntityType(req.EntityType),
		req.EntityID, req.FIID, req.Reason, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fa)
}

func (h *Handler) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	var req freezeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.GetActor(r.Context())
	fa, err := h.screening.Unfreeze(r.Context(), domain.EntityType(req.EntityType),
		req.EntityID, req.FIID, req.Reason, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fa)
}

type watchlistRequest struct {
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	FIID       string     `json:"fi_id"`
	Status     string     `json:"status"`
	RiskLevel  string     `json:"risk_level"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (h *Handler) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.screening.AddToWatchlist(r.Context(), &domain.WatchlistEntry{
		EntityType: domain.EntityType(req.EntityType),
		EntityID:   req.EntityID,
		FIID:       req.FIID,
		Status:     domain.WatchlistStatus(req.Status),
		RiskLevel:  req.RiskLevel,
		Reason:     req.Reason,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
