package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"centralledger/internal/nullifier"
	"centralledger/internal/platform/middleware"
)

type registerNullifierRequest struct {
	Nullifier     string  `json:"nullifier"`
	TransactionID string  `json:"transaction_id"`
	SerialNumber  string  `json:"serial_number"`
	Amount        float64 `json:"amount"`
}

func (h *Handler) handleRegisterNullifier(w http.ResponseWriter, r *http.Request) {
	var req registerNullifierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	fiID := middleware.GetFIID(r.Context())
	n, err := h.nullifiers.Register(r.Context(), req.Nullifier, fiID,
		req.TransactionID, req.SerialNumber, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

type checkNullifierResponse struct {
	Exists        bool      `json:"exists"`
	FIID          string    `json:"fi_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	RegisteredAt  time.Time `json:"registered_at,omitzero"`
}

func (h *Handler) handleCheckNullifier(w http.ResponseWriter, r *http.Request) {
	n, found, err := h.nullifiers.Check(r.Context(), chi.URLParam(r, "value"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := checkNullifierResponse{Exists: found}
	if found {
		resp.FIID = n.FIID
		resp.TransactionID = n.TransactionID
		resp.RegisteredAt = n.RegisteredAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type syncNullifiersRequest struct {
	Nullifiers []registerNullifierRequest `json:"nullifiers"`
}

type syncItemError struct {
	Index     int    `json:"index"`
	Nullifier string `json:"nullifier"`
	Error     string `json:"error"`
}

func (h *Handler) handleSyncNullifiers(w http.ResponseWriter, r *http.Request) {
	var req syncNullifiersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]nullifier.BatchItem, 0, len(req.Nullifiers))
	for _, n := range req.Nullifiers {
		items = append(items, nullifier.BatchItem{
			Nullifier:    n.Nullifier,
			TxID:         n.TransactionID,
			SerialNumber: n.SerialNumber,
			Amount:       n.Amount,
		})
	}

	result, err := h.nullifiers.SyncBatch(r.Context(), middleware.GetFIID(r.Context()), items)
	if err != nil {
		writeError(w, err)
		return
	}

	itemErrors := make([]syncItemError, 0, len(result.Errors))
	for _, e := range result.Errors {
		itemErrors = append(itemErrors, syncItemError{
			Index:     e.Index,
			Nullifier: e.Nullifier,
			Error:     e.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registered": len(result.Registered),
		"errors":     itemErrors,
	})
}
