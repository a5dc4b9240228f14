package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"centralledger/internal/platform/middleware"
)

type allocateRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) handleAllocateFunds(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.ledger.AllocateFunds(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"institution":    toFIResponse(res.Institution),
		"allocation_id":  res.Allocation.ID,
		"transaction_id": res.Allocation.TransactionID,
		"ledger_entry":   res.Entry,
	})
}

func (h *Handler) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.ledger.Allocations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"allocations": allocations})
}

type crossFIRequest struct {
	TargetFI   string  `json:"target_fi"`
	FromWallet string  `json:"from_wallet"`
	ToWallet   string  `json:"to_wallet"`
	Amount     float64 `json:"amount"`
	Proof      string  `json:"proof"`
}

// handleRouteCrossFI records intent for a transfer whose source FI is
// the authenticated caller.
func (h *Handler) handleRouteCrossFI(w http.ResponseWriter, r *http.Request) {
	var req crossFIRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sourceFI := middleware.GetFIID(r.Context())
	route, err := h.ledger.RouteCrossFI(r.Context(), sourceFI, req.TargetFI,
		req.FromWallet, req.ToWallet, req.Amount, req.Proof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

// handlePendingCrossFI returns transfers addressed to the authenticated
// FI (pull model).
func (h *Handler) handlePendingCrossFI(w http.ResponseWriter, r *http.Request) {
	routes, err := h.ledger.PendingForTarget(r.Context(), middleware.GetFIID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": routes})
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		return 0
	}
	return limit
}

func (h *Handler) handleListLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Entries(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleListLedgerByFI(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.EntriesByFI(r.Context(), chi.URLParam(r, "id"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
