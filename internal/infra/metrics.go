package infra

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors exposed on /metrics.
// All Record* methods are no-ops on a nil *Metrics so services can run
// without instrumentation in unit tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PurchasesCreated   prometheus.Counter
	PurchaseAmount     prometheus.Counter
	ReturnsCreated     prometheus.Counter
	RefundAmount       prometheus.Counter
	StockWithdrawals   *prometheus.CounterVec
	StockRestocks      *prometheus.CounterVec
	BusinessFailures   *prometheus.CounterVec
	JobsProcessed      *prometheus.CounterVec
	CircuitBreakerOpen prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	m.PurchasesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_created_total",
		Help:      "Purchases committed",
	})
	m.PurchaseAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchase_net_amount_total",
		Help:      "Sum of net totals of committed purchases",
	})
	m.ReturnsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returns_created_total",
		Help:      "Returns committed",
	})
	m.RefundAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refund_amount_total",
		Help:      "Sum of refunds of committed returns",
	})
	m.StockWithdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_withdrawals_total",
		Help:      "Stock withdrawals by movement type",
	}, []string{"type"})
	m.StockRestocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_restocks_total",
		Help:      "Stock additions by movement type",
	}, []string{"type"})
	m.BusinessFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "business_failures_total",
		Help:      "Rejected operations by error kind",
	}, []string{"operation", "kind"})
	m.JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Background jobs by type and outcome",
	}, []string{"type", "status"})
	m.CircuitBreakerOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mailer_circuit_open",
		Help:      "1 while the mailer circuit breaker is open",
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PurchasesCreated,
		m.PurchaseAmount,
		m.ReturnsCreated,
		m.RefundAmount,
		m.StockWithdrawals,
		m.StockRestocks,
		m.BusinessFailures,
		m.JobsProcessed,
		m.CircuitBreakerOpen,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordPurchase(netTotal float64) {
	if m == nil {
		return
	}
	m.PurchasesCreated.Inc()
	m.PurchaseAmount.Add(netTotal)
}

func (m *Metrics) RecordReturn(refund float64) {
	if m == nil {
		return
	}
	m.ReturnsCreated.Inc()
	m.RefundAmount.Add(refund)
}

func (m *Metrics) RecordWithdrawal(movementType string) {
	if m == nil {
		return
	}
	m.StockWithdrawals.WithLabelValues(movementType).Inc()
}

func (m *Metrics) RecordRestock(movementType string) {
	if m == nil {
		return
	}
	m.StockRestocks.WithLabelValues(movementType).Inc()
}

func (m *Metrics) RecordFailure(operation, kind string) {
	if m == nil {
		return
	}
	m.BusinessFailures.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) RecordJob(jobType string, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.JobsProcessed.WithLabelValues(jobType, status).Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerOpen.Set(1)
		return
	}
	m.CircuitBreakerOpen.Set(0)
}
