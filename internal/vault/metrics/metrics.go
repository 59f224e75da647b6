package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the vault module.
// Counters track lifecycle changes and asset flow; histograms cover the
// deposit and withdrawal paths, which wait on the transfer collaborator.
type Metrics struct {
	VaultsCreated      prometheus.Counter
	LifecycleChanges   *prometheus.CounterVec
	GuardianChanges    *prometheus.CounterVec
	DepositedAmount    prometheus.Counter
	WithdrawnAmount    prometheus.Counter
	WithdrawalRequests *prometheus.CounterVec
	OperationFailures  *prometheus.CounterVec
	DepositDuration    prometheus.Histogram
	WithdrawalDuration prometheus.Histogram
}

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// New registers the vault metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VaultsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "custody_vaults_created_total",
			Help: "Total number of vaults created",
		}),
		LifecycleChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_vault_lifecycle_changes_total",
			Help: "Vault lifecycle transitions by kind (freeze, unfreeze, close)",
		}, []string{"transition"}),
		GuardianChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_vault_guardian_changes_total",
			Help: "Guardian set changes by kind (add, remove, suspend, reinstate)",
		}, []string{"change"}),
		DepositedAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "custody_deposited_amount_total",
			Help: "Sum of deposited amounts in base units",
		}),
		WithdrawnAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "custody_withdrawn_amount_total",
			Help: "Sum of completed withdrawal amounts in base units",
		}),
		WithdrawalRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_withdrawal_requests_total",
			Help: "Withdrawal request transitions by resulting status",
		}, []string{"status"}),
		OperationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_operation_failures_total",
			Help: "Failed vault operations by operation and error code",
		}, []string{"operation", "code"}),
		DepositDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_deposit_duration_seconds",
			Help:    "Duration of deposit operations including the asset transfer",
			Buckets: durationBuckets,
		}),
		WithdrawalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_withdrawal_duration_seconds",
			Help:    "Duration of withdrawal completions including the asset transfer",
			Buckets: durationBuckets,
		}),
	}
}

func (m *Metrics) IncrementVaultsCreated() {
	m.VaultsCreated.Inc()
}

func (m *Metrics) IncrementLifecycle(transition string) {
	m.LifecycleChanges.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncrementGuardianChange(change string) {
	m.GuardianChanges.WithLabelValues(change).Inc()
}

func (m *Metrics) IncrementWithdrawalRequest(status string) {
	m.WithdrawalRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

// ObserveDeposit records a successful deposit. Call with time.Now() taken at
// the start of the operation.
func (m *Metrics) ObserveDeposit(amount uint64, start time.Time) {
	m.DepositedAmount.Add(float64(amount))
	m.DepositDuration.Observe(time.Since(start).Seconds())
}

// ObserveWithdrawal records a completed withdrawal.
func (m *Metrics) ObserveWithdrawal(amount uint64, start time.Time) {
	m.WithdrawnAmount.Add(float64(amount))
	m.WithdrawalDuration.Observe(time.Since(start).Seconds())
}
