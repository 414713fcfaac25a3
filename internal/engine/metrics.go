package engine

import (
	"errors"
	"math/big"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's prometheus collectors.
type Metrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	reserve      *prometheus.GaugeVec
	totalShares  prometheus.Gauge
	sinkFailures *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg yields working but
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "operations_total",
			Help:      "number of pool operations by result",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Name:      "operation_duration_seconds",
			Help:      "time to apply and persist a pool operation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Name:      "reserve",
			Help:      "pool reserve per token",
		}, []string{"token"}),
		totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amm",
			Name:      "total_shares",
			Help:      "pool shares outstanding",
		}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "sink_failures_total",
			Help:      "events that could not be delivered to a sink",
		}, []string{"sink"}),
	}
	if reg == nil {
		return m, nil
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		m.operations, m.latency, m.reserve, m.totalShares, m.sinkFailures,
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return m, errors.Join(errs...)
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setPool(s amm.Summary) {
	m.reserve.WithLabelValues("token1").Set(toFloat(s.Reserve1))
	m.reserve.WithLabelValues("token2").Set(toFloat(s.Reserve2))
	m.totalShares.Set(toFloat(s.TotalShares))
}

func (m *Metrics) sinkFailed(sink string) {
	m.sinkFailures.WithLabelValues(sink).Inc()
}

// resultLabel keeps label cardinality bounded by the closed error kinds.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var ammErr *amm.Error
	if errors.As(err, &ammErr) {
		return ammErr.Kind.String()
	}
	switch {
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
