package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	positionMetricsOnce sync.Once
	positionRegistry    *PositionMetrics

	chainMetricsOnce sync.Once
	chainRegistry    *ChainMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *OracleMetrics

	breakerMetricsOnce sync.Once
	breakerRegistry    *BreakerMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// engine entry-point activity (position, market, chain, settlement, oracle,
// breaker) segmented by module and outcome.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "module",
				Name:      "calls_total",
				Help:      "Total engine calls segmented by module, method, and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total engine call errors segmented by module, method, and error kind.",
			}, []string{"module", "method", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "versemarket",
				Subsystem: "module",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for engine calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of calls rejected by a pause guard or rate limiter.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an engine call. errKind should be a stable
// string such as "wrong_status" or "" for success.
func (m *moduleMetrics) Observe(module, method, errKind string, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if errKind != "" {
		outcome = "error"
		m.errors.WithLabelValues(module, method, errKind).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason, e.g. "paused" or "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// PositionMetrics tracks position lifecycle and liquidation activity.
type PositionMetrics struct {
	opened       *prometheus.CounterVec
	closed       *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	openInterest prometheus.Gauge
}

// Position returns the singleton position metrics registry.
func Position() *PositionMetrics {
	positionMetricsOnce.Do(func() {
		positionRegistry = &PositionMetrics{
			opened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "position",
				Name:      "opened_total",
				Help:      "Count of positions opened, segmented by verse.",
			}, []string{"verse_id"}),
			closed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "position",
				Name:      "closed_total",
				Help:      "Count of positions closed, segmented by verse.",
			}, []string{"verse_id"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "position",
				Name:      "liquidations_total",
				Help:      "Count of forced liquidations, segmented by verse and reason.",
			}, []string{"verse_id", "reason"}),
			openInterest: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "versemarket",
				Subsystem: "position",
				Name:      "open_interest",
				Help:      "Current total open interest across all verses, in fixed-point float units.",
			}),
		}
		prometheus.MustRegister(
			positionRegistry.opened,
			positionRegistry.closed,
			positionRegistry.liquidations,
			positionRegistry.openInterest,
		)
	})
	return positionRegistry
}

func (m *PositionMetrics) RecordOpen(verseID string) {
	if m == nil {
		return
	}
	m.opened.WithLabelValues(labelOrUnknown(verseID)).Inc()
}

func (m *PositionMetrics) RecordClose(verseID string) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(labelOrUnknown(verseID)).Inc()
}

func (m *PositionMetrics) RecordLiquidation(verseID, reason string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(labelOrUnknown(verseID), labelOrUnknown(reason)).Inc()
}

func (m *PositionMetrics) SetOpenInterest(oi float64) {
	if m == nil {
		return
	}
	m.openInterest.Set(oi)
}

// ChainMetrics tracks leveraged chain composition and unwind activity.
type ChainMetrics struct {
	completed *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
	leverage  *prometheus.HistogramVec
}

// Chain returns the singleton chain metrics registry.
func Chain() *ChainMetrics {
	chainMetricsOnce.Do(func() {
		chainRegistry = &ChainMetrics{
			completed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "chain",
				Name:      "completed_total",
				Help:      "Count of chain executions that completed successfully.",
			}, []string{"verse_id"}),
			rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "chain",
				Name:      "rollbacks_total",
				Help:      "Count of chain executions that rolled back, segmented by failing step kind.",
			}, []string{"verse_id", "failed_kind"}),
			leverage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "versemarket",
				Subsystem: "chain",
				Name:      "effective_leverage",
				Help:      "Distribution of effective leverage achieved by completed chains.",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
			}, []string{"verse_id"}),
		}
		prometheus.MustRegister(
			chainRegistry.completed,
			chainRegistry.rollbacks,
			chainRegistry.leverage,
		)
	})
	return chainRegistry
}

func (m *ChainMetrics) RecordCompleted(verseID string, effectiveLeverage float64) {
	if m == nil {
		return
	}
	label := labelOrUnknown(verseID)
	m.completed.WithLabelValues(label).Inc()
	m.leverage.WithLabelValues(label).Observe(effectiveLeverage)
}

func (m *ChainMetrics) RecordRollback(verseID, failedKind string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(labelOrUnknown(verseID), labelOrUnknown(failedKind)).Inc()
}

// OracleMetrics tracks price ingest acceptance, rejection, and manipulation
// alerts.
type OracleMetrics struct {
	rejected          *prometheus.CounterVec
	accepted          *prometheus.CounterVec
	manipulationScore *prometheus.GaugeVec
}

// Oracle returns the singleton oracle metrics registry.
func Oracle() *OracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "oracle",
				Name:      "accepted_total",
				Help:      "Count of accepted price pushes, segmented by proposal.",
			}, []string{"proposal_id"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "oracle",
				Name:      "rejected_total",
				Help:      "Count of rejected price pushes, segmented by proposal and reason.",
			}, []string{"proposal_id", "reason"}),
			manipulationScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "versemarket",
				Subsystem: "oracle",
				Name:      "manipulation_score",
				Help:      "Most recent manipulation score (0-100) observed per proposal.",
			}, []string{"proposal_id"}),
		}
		prometheus.MustRegister(
			oracleRegistry.accepted,
			oracleRegistry.rejected,
			oracleRegistry.manipulationScore,
		)
	})
	return oracleRegistry
}

func (m *OracleMetrics) RecordAccepted(proposalID string) {
	if m == nil {
		return
	}
	m.accepted.WithLabelValues(labelOrUnknown(proposalID)).Inc()
}

func (m *OracleMetrics) RecordRejected(proposalID, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(labelOrUnknown(proposalID), labelOrUnknown(reason)).Inc()
}

func (m *OracleMetrics) SetManipulationScore(proposalID string, score int) {
	if m == nil {
		return
	}
	m.manipulationScore.WithLabelValues(labelOrUnknown(proposalID)).Set(float64(score))
}

// BreakerMetrics tracks circuit breaker trips and the current halt state.
type BreakerMetrics struct {
	trips *prometheus.CounterVec
	halt  prometheus.Gauge
}

// Breaker returns the singleton breaker metrics registry.
func Breaker() *BreakerMetrics {
	breakerMetricsOnce.Do(func() {
		breakerRegistry = &BreakerMetrics{
			trips: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "versemarket",
				Subsystem: "breaker",
				Name:      "trips_total",
				Help:      "Count of circuit breaker trips, segmented by trigger kind.",
			}, []string{"kind"}),
			halt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "versemarket",
				Subsystem: "breaker",
				Name:      "halt_engaged",
				Help:      "Indicates whether the global halt flag is currently set (1) or not (0).",
			}),
		}
		prometheus.MustRegister(breakerRegistry.trips, breakerRegistry.halt)
	})
	return breakerRegistry
}

func (m *BreakerMetrics) RecordTrip(kind string) {
	if m == nil {
		return
	}
	m.trips.WithLabelValues(labelOrUnknown(kind)).Inc()
}

func (m *BreakerMetrics) SetHalted(halted bool) {
	if m == nil {
		return
	}
	if halted {
		m.halt.Set(1)
		return
	}
	m.halt.Set(0)
}

func labelOrUnknown(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
