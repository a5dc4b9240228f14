package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"centralledger/internal/domain"
)

type registerFIRequest struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

type fiResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	Endpoint         string    `json:"endpoint"`
	PublicKey        string    `json:"public_key"`
	AllocatedFunds   float64   `json:"allocated_funds"`
	AvailableBalance float64   `json:"available_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

func toFIResponse(fi *domain.FinancialInstitution) fiResponse {
	return fiResponse{
		ID:               fi.ID,
		Name:             fi.Name,
		Status:           string(fi.Status),
		Endpoint:         fi.Endpoint,
		PublicKey:        fi.PublicKey,
		AllocatedFunds:   fi.AllocatedFunds,
		AvailableBalance: fi.AvailableBalance,
		CreatedAt:        fi.CreatedAt,
	}
}

type registerFIResponse struct {
	fiResponse
	// APIKey is only present for a newly created FI; it is never
	// recoverable afterwards.
	APIKey   string `json:"api_key,omitempty"`
	Existing bool   `json:"existing"`
}

func (h *Handler) handleRegisterFI(w http.ResponseWriter, r *http.Request) {
	var req registerFIRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reg, err := h.institutions.Register(r.Context(), req.Name, req.Endpoint)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if reg.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, registerFIResponse{
		fiResponse: toFIResponse(reg.FI),
		APIKey:     reg.APIKey,
		Existing:   reg.Existing,
	})
}

func (h *Handler) handleListFIs(w http.ResponseWriter, r *http.Request) {
	fis, err := h.institutions.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]fiResponse, 0, len(fis))
	for _, fi := range fis {
		out = append(out, toFIResponse(fi))
	}
	writeJSON(w, http.StatusOK, map[string]any{"institutions": out})
}

func (h *Handler) handleGetFI(w http.ResponseWriter, r *http.Request) {
	fi, err := h.institutions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFIResponse(fi))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetFIStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.institutions.SetStatus(r.Context(), id, domain.FIStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}
