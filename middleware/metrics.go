package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/broady/reqsvc"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for outbound calls.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of outbound requests by target and status",
			},
			[]string{"target", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Outbound request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"target"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of outbound requests currently in flight",
			},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.RequestsInFlight)
	return m
}

// Interceptor records every call going through it.
//
// The status label is the response status, the status of a returned
// *reqsvc.RequestError, or "error" for any other failure.
func (m *Metrics) Interceptor() reqsvc.Interceptor {
	return func(ctx context.Context, target reqsvc.Target, req *reqsvc.Request, next reqsvc.Handler) (*reqsvc.Response, error) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		res, err := next(ctx, target, req)
		m.RequestDuration.WithLabelValues(string(target)).Observe(time.Since(start).Seconds())
		m.RequestsTotal.WithLabelValues(string(target), statusLabel(res, err)).Inc()
		return res, err
	}
}

func statusLabel(res *reqsvc.Response, err error) string {
	if err != nil {
		var reqErr *reqsvc.RequestError
		if errors.As(err, &reqErr) && reqErr.Status != 0 {
			return strconv.Itoa(reqErr.Status)
		}
		return "error"
	}
	if res == nil {
		return "none"
	}
	return strconv.Itoa(res.Status)
}
