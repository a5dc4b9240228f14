package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"centralledger/internal/alert"
	"centralledger/internal/compliance"
	"centralledger/internal/domain"
	"centralledger/internal/platform/middleware"
)

type complianceCheckRequest struct {
	WalletID      string  `json:"wallet_id"`
	DeviceID      string  `json:"device_id"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	TxType        string  `json:"tx_type"`
	NewDevice     bool    `json:"new_device"`
}

// handleComplianceCheck evaluates a transaction for the authenticated
// FI. The monitor runs on the same descriptor; its triggers are
// advisory and reported separately from violations.
func (h *Handler) handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	var req complianceCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	fiID := middleware.GetFIID(r.Context())
	result, err := h.engine.Evaluate(r.Context(), compliance.Input{
		FIID:          fiID,
		WalletID:      req.WalletID,
		DeviceID:      req.DeviceID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		TxType:        domain.TxType(req.TxType),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	triggered := h.monitor.Inspect(r.Context(), alert.TxDescriptor{
		FIID:          fiID,
		WalletID:      req.WalletID,
		DeviceID:      req.DeviceID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		NewDevice:     req.NewDevice,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"compliant":      result.Compliant,
		"blocked":        result.Blocked,
		"violations":     result.Violations,
		"monitor_alerts": len(triggered),
	})
}

type recordVolumeRequest struct {
	Amount  float64 `json:"amount"`
	Offline bool    `json:"offline"`
}

// handleRecordVolume is the explicit post-acceptance accumulation call;
// evaluation itself never touches counters.
func (h *Handler) handleRecordVolume(w http.ResponseWriter, r *http.Request) {
	var req recordVolumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.engine.RecordVolume(r.Context(), middleware.GetFIID(r.Context()), req.Amount, req.Offline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type createRuleRequest struct {
	RuleType         string  `json:"rule_type"`
	TargetType       string  `json:"target_type"`
	TargetID         string  `json:"target_id"`
	LimitValue       float64 `json:"limit_value"`
	DailyLimit       float64 `json:"daily_limit"`
	MonthlyLimit     float64 `json:"monthly_limit"`
	MaxOfflineAmount float64 `json:"max_offline_amount"`
	MaxOfflineCount  int     `json:"max_offline_count"`
	Priority         int     `json:"priority"`
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rule, err := h.engine.CreateRule(r.Context(), &domain.ComplianceRule{
		RuleType:         domain.RuleType(req.RuleType),
		TargetType:       domain.TargetType(req.TargetType),
		TargetID:         req.TargetID,
		LimitValue:       req.LimitValue,
		DailyLimit:       req.DailyLimit,
		MonthlyLimit:     req.MonthlyLimit,
		MaxOfflineAmount: req.MaxOfflineAmount,
		MaxOfflineCount:  req.MaxOfflineCount,
		Priority:         req.Priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.engine.ListRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *Handler) handleDeactivateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.DeactivateRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

// handleDashboard aggregates the operator overview: per-FI counters,
// screening counts, and the unresolved alert backlog.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses, err := h.engine.Statuses(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	frozen, watchlisted, err := h.screening.Counts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	unresolved, err := h.alerts.CountUnresolved(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	fis, err := h.institutions.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"institutions":      len(fis),
		"statuses":          statuses,
		"frozen_count":      frozen,
		"watchlist_count":   watchlisted,
		"unresolved_alerts": unresolved,
	})
}
