// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Round lifecycle metrics
	DepositsTotal      *prometheus.CounterVec
	DepositVolume      *prometheus.CounterVec
	FreeBetsActivated  *prometheus.CounterVec
	DrawsTotal         *prometheus.CounterVec
	RefundsTotal       *prometheus.CounterVec
	RejectedOperations *prometheus.CounterVec

	// Prize metrics
	BurnedTotal         prometheus.Counter
	PlatformFeesTotal   prometheus.Counter
	PrizesEscrowedTotal prometheus.Counter
	VestingClaimsTotal  prometheus.Counter
	VestingClaimVolume  prometheus.Counter
	ReferralsPaidTotal  prometheus.Counter
	ReferralVolume      prometheus.Counter

	// Pool state gauges
	RoundNumber      *prometheus.GaugeVec
	ParticipantCount *prometheus.GaugeVec
	PoolTotal        *prometheus.GaugeVec

	// Crank metrics
	CrankRunsTotal *prometheus.CounterVec
	CrankDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Feed metrics
	FeedSubscribers prometheus.Gauge
	EventsDropped   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tykhepot"
	}

	return &Metrics{
		DepositsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "deposits_total",
			Help:      "Total number of accepted regular deposits by pool",
		}, []string{"pool"}),
		DepositVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "deposit_volume_base_units",
			Help:      "Total user-paid deposit amount in base units by pool",
		}, []string{"pool"}),
		FreeBetsActivated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "free_bets_activated_total",
			Help:      "Total number of free-bet activations by pool",
		}, []string{"pool"}),
		DrawsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "draws_total",
			Help:      "Total number of executed draws by pool",
		}, []string{"pool"}),
		RefundsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "refunds_total",
			Help:      "Total number of refunded rounds by pool",
		}, []string{"pool"}),
		RejectedOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "rejected_operations_total",
			Help:      "Total number of rejected operations by operation and reason",
		}, []string{"operation", "reason"}),

		BurnedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "burned_base_units_total",
			Help:      "Total amount destroyed by draws in base units",
		}),
		PlatformFeesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "platform_fees_base_units_total",
			Help:      "Total platform fees collected in base units",
		}),
		PrizesEscrowedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "escrowed_base_units_total",
			Help:      "Total top-tier prize amount moved to the vesting escrow",
		}),
		VestingClaimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "vesting_claims_total",
			Help:      "Total number of successful vesting claims",
		}),
		VestingClaimVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "vesting_claim_volume_base_units",
			Help:      "Total vested amount paid out in base units",
		}),
		ReferralsPaidTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "referrals_paid_total",
			Help:      "Total number of paid referral fees",
		}),
		ReferralVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prizes",
			Name:      "referral_volume_base_units",
			Help:      "Total referral fees paid in base units",
		}),

		RoundNumber: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "round_number",
			Help:      "Current round number by pool",
		}, []string{"pool"}),
		ParticipantCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "participant_count",
			Help:      "Current round participant count by pool",
		}, []string{"pool"}),
		PoolTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "total_base_units",
			Help:      "Current round total held by the pool vault, rollover excluded",
		}, []string{"pool"}),

		CrankRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crank",
			Name:      "runs_total",
			Help:      "Total crank sweeps by task and status",
		}, []string{"task", "status"}),
		CrankDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crank",
			Name:      "duration_seconds",
			Help:      "Crank sweep duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total database query errors",
		}, []string{"database", "operation"}),

		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Connected websocket feed subscribers",
		}),
		EventsDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_dropped",
			Help:      "Lifetime audit events dropped due to a full recorder queue",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDeposit increments the deposit counters for a pool.
func RecordDeposit(pool string, amount uint64) {
	DefaultMetrics.DepositsTotal.WithLabelValues(pool).Inc()
	DefaultMetrics.DepositVolume.WithLabelValues(pool).Add(float64(amount))
}

// RecordFreeBet increments the free-bet activation counter.
func RecordFreeBet(pool string) {
	DefaultMetrics.FreeBetsActivated.WithLabelValues(pool).Inc()
}

// RecordDraw records one executed draw and its prize split.
func RecordDraw(pool string, burned, platformFee, escrowed uint64) {
	DefaultMetrics.DrawsTotal.WithLabelValues(pool).Inc()
	DefaultMetrics.BurnedTotal.Add(float64(burned))
	DefaultMetrics.PlatformFeesTotal.Add(float64(platformFee))
	DefaultMetrics.PrizesEscrowedTotal.Add(float64(escrowed))
}

// RecordRefund increments the refund counter.
func RecordRefund(pool string) {
	DefaultMetrics.RefundsTotal.WithLabelValues(pool).Inc()
}

// RecordRejection counts a rejected operation by reason.
func RecordRejection(operation, reason string) {
	DefaultMetrics.RejectedOperations.WithLabelValues(operation, reason).Inc()
}

// RecordVestingClaim records one successful vesting payout.
func RecordVestingClaim(amount uint64) {
	DefaultMetrics.VestingClaimsTotal.Inc()
	DefaultMetrics.VestingClaimVolume.Add(float64(amount))
}

// RecordReferralPaid records one settled referral fee.
func RecordReferralPaid(amount uint64) {
	DefaultMetrics.ReferralsPaidTotal.Inc()
	DefaultMetrics.ReferralVolume.Add(float64(amount))
}

// UpdatePoolState refreshes the per-pool gauges.
func UpdatePoolState(pool string, round uint64, participants uint32, total uint64) {
	DefaultMetrics.RoundNumber.WithLabelValues(pool).Set(float64(round))
	DefaultMetrics.ParticipantCount.WithLabelValues(pool).Set(float64(participants))
	DefaultMetrics.PoolTotal.WithLabelValues(pool).Set(float64(total))
}

// RecordCrankRun records one crank sweep.
func RecordCrankRun(task string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.CrankRunsTotal.WithLabelValues(task, status).Inc()
	DefaultMetrics.CrankDuration.WithLabelValues(task).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateFeed refreshes the websocket feed gauges.
func UpdateFeed(subscribers int, dropped uint64) {
	DefaultMetrics.FeedSubscribers.Set(float64(subscribers))
	DefaultMetrics.EventsDropped.Set(float64(dropped))
}
