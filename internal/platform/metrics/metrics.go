package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger authority.
type Metrics struct {
	AllocationsTotal      prometheus.Counter
	AllocatedFundsTotal   prometheus.Counter
	NullifiersRegistered  prometheus.Counter
	DoubleSpendsRejected  prometheus.Counter
	ComplianceEvaluations prometheus.Counter
	ComplianceBlocked     prometheus.Counter
	AlertsRaised          *prometheus.CounterVec
	CrossFIRoutes         prometheus.Counter
	ReconciliationRuns    prometheus.Counter
	ReconciliationDrift   prometheus.Gauge
	NotifyFailures        prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AllocationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_allocations_total",
			Help: "Total number of fund allocations to FIs",
		}),
		AllocatedFundsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_allocated_funds_total",
			Help: "Total value of funds allocated to FIs",
		}),
		NullifiersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_nullifiers_registered_total",
			Help: "Total number of nullifiers registered",
		}),
		DoubleSpendsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_double_spends_rejected_total",
			Help: "Total number of nullifier registrations rejected as double spends",
		}),
		ComplianceEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_compliance_evaluations_total",
			Help: "Total number of compliance evaluations",
		}),
		ComplianceBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_compliance_blocked_total",
			Help: "Total number of transactions blocked by the rule engine",
		}),
		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "central_ledger_alerts_raised_total",
			Help: "Total number of alerts raised, by severity",
		}, []string{"severity"}),
		CrossFIRoutes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_cross_fi_routes_total",
			Help: "Total number of cross-FI transfers recorded",
		}),
		ReconciliationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_reconciliation_runs_total",
			Help: "Total number of money-supply reconciliation runs",
		}),
		ReconciliationDrift: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "central_ledger_reconciliation_drift",
			Help: "Absolute discrepancy observed by the last reconciliation run",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "central_ledger_notify_failures_total",
			Help: "Total number of outbound FI notifications dropped after retries",
		}),
	}
}
