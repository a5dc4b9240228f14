package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"centralledger/internal/alert"
	"centralledger/internal/compliance"
	"centralledger/internal/institution"
	"centralledger/internal/ledger"
	"centralledger/internal/nullifier"
	"centralledger/internal/platform/middleware"
	"centralledger/internal/reconcile"
	"centralledger/internal/screening"
)

// Handler bundles the domain services the transport exposes.
type Handler struct {
	institutions *institution.Service
	nullifiers   *nullifier.Registry
	engine       *compliance.Engine
	screening    *screening.Service
	alerts       *alert.Service
	monitor      *alert.Monitor
	ledger       *ledger.Service
	reconciler   *reconcile.Reconciler
	logger       *slog.Logger
}

func NewHandler(
	institutions *institution.Service,
	nullifiers *nullifier.Registry,
	engine *compliance.Engine,
	scr *screening.Service,
	alerts *alert.Service,
	monitor *alert.Monitor,
	led *ledger.Service,
	reconciler *reconcile.Reconciler,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		institutions: institutions,
		nullifiers:   nullifiers,
		engine:       engine,
		screening:    scr,
		alerts:       alerts,
		monitor:      monitor,
		ledger:       led,
		reconciler:   reconciler,
		logger:       logger,
	}
}

// NewRouter wires every endpoint. Operator mutations sit behind JWT
// bearer auth; FI-facing endpoints authenticate with per-FI API keys.
func NewRouter(h *Handler, validator middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// FI self-registration is the bootstrap path; the returned API key
	// authenticates everything else the FI calls.
	r.Post("/api/v1/institutions", h.handleRegisterFI)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireFIKey(h.institutions, h.logger))

		r.Post("/api/v1/nullifiers", h.handleRegisterNullifier)
		r.Get("/api/v1/nullifiers/{value}", h.handleCheckNullifier)
		r.Post("/api/v1/nullifiers/sync", h.handleSyncNullifiers)

		r.Post("/api/v1/compliance/check", h.handleComplianceCheck)
		r.Post("/api/v1/compliance/volume", h.handleRecordVolume)

		r.Post("/api/v1/transfers/cross-fi", h.handleRouteCrossFI)
		r.Get("/api/v1/transfers/pending", h.handlePendingCrossFI)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(validator, h.logger))

		r.Get("/api/v1/institutions", h.handleListFIs)
		r.Get("/api/v1/institutions/{id}", h.handleGetFI)
		r.Put("/api/v1/institutions/{id}/status", h.handleSetFIStatus)
		r.Post("/api/v1/institutions/{id}/allocate", h.handleAllocateFunds)
		r.Get("/api/v1/institutions/{id}/allocations", h.handleListAllocations)

		r.Post("/api/v1/screening/freeze", h.handleFreeze)
		r.Post("/api/v1/screening/unfreeze", h.handleUnfreeze)
		r.Post("/api/v1/screening/watchlist", h.handleAddToWatchlist)

		r.Post("/api/v1/compliance/rules", h.handleCreateRule)
		r.Get("/api/v1/compliance/rules", h.handleListRules)
		r.Delete("/api/v1/compliance/rules/{id}", h.handleDeactivateRule)
		r.Get("/api/v1/compliance/dashboard", h.handleDashboard)

		r.Get("/api/v1/ledger", h.handleListLedger)
		r.Get("/api/v1/ledger/fi/{id}", h.handleListLedgerByFI)

		r.Get("/api/v1/alerts", h.handleListAlerts)
		r.Post("/api/v1/alerts/{id}/read", h.handleMarkAlertRead)
		r.Post("/api/v1/alerts/{id}/resolve", h.handleResolveAlert)

		r.Post("/api/v1/reconcile", h.handleReconcile)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
