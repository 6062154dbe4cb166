// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"degenjudge/internal/solana"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "degenjudge"

// Metadata lookup outcomes.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupFallback = "fallback"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	namespace string
	reg       prometheus.Registerer

	// Analysis metrics
	AnalysesTotal          *prometheus.CounterVec
	AnalysisDuration       prometheus.Histogram
	TradesReturned         prometheus.Histogram
	TransactionsDropped    prometheus.Counter
	LastSuccessfulAnalysis prometheus.Gauge

	// Upstream metrics
	RPCCallsTotal  *prometheus.CounterVec
	RPCCallLatency *prometheus.HistogramVec
	RateLimitHits  *prometheus.CounterVec

	// Metadata metrics
	MetadataLookups *prometheus.CounterVec
}

// NewMetrics creates metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		namespace: namespace,
		reg:       reg,

		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of wallet analyses by status",
		}, []string{"status"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wallet analysis duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		TradesReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "trades_returned",
			Help:      "Number of token trades returned per analysis",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20},
		}),
		TransactionsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "transactions_dropped_total",
			Help:      "Total number of transactions dropped after fetch failures",
		}),
		LastSuccessfulAnalysis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),

		RPCCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_calls_total",
			Help:      "Total number of RPC calls by method and status",
		}, []string{"method", "status"}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RateLimitHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of HTTP 429 responses by method",
		}, []string{"method"}),

		MetadataLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "lookups_total",
			Help:      "Token metadata lookups by result",
		}, []string{"result"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RegisterQueueGauge exposes the number of in-flight queued calls.
func (m *Metrics) RegisterQueueGauge(active func() int) {
	if m == nil || m.reg == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "in_flight",
		Help:      "Number of queued calls currently executing",
	}, func() float64 { return float64(active()) })
}

// ObserveRPC records one RPC call. Its signature matches solana.Observer.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	m.RPCCallsTotal.WithLabelValues(method, rpcStatus(err)).Inc()

	var rl *solana.RateLimitError
	if errors.As(err, &rl) {
		m.RateLimitHits.WithLabelValues(method).Inc()
	}
}

// RecordAnalysis records a finished wallet analysis.
func (m *Metrics) RecordAnalysis(elapsed time.Duration, trades int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AnalysesTotal.WithLabelValues("error").Inc()
		return
	}
	m.AnalysesTotal.WithLabelValues("ok").Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	m.TradesReturned.Observe(float64(trades))
	m.LastSuccessfulAnalysis.SetToCurrentTime()
}

// RecordDroppedTransaction counts a transaction dropped after fetch failure.
func (m *Metrics) RecordDroppedTransaction() {
	if m == nil {
		return
	}
	m.TransactionsDropped.Inc()
}

// RecordMetadataLookup counts a metadata lookup by result.
func (m *Metrics) RecordMetadataLookup(result string) {
	if m == nil {
		return
	}
	m.MetadataLookups.WithLabelValues(result).Inc()
}

func rpcStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		rl  *solana.RateLimitError
		tr  *solana.TransportError
		rpc *solana.RPCError
		pe  *solana.ParseError
	)
	switch {
	case errors.Is(err, solana.ErrNotFound):
		return "not_found"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &rpc):
		return "rpc_error"
	case errors.As(err, &pe):
		return "parse_error"
	case errors.As(err, &tr):
		return "transport_error"
	default:
		return "error"
	}
}
