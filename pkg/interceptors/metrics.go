package interceptors

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	fkerrors "github.com/tombee/fetchkit/pkg/errors"
	"github.com/tombee/fetchkit/pkg/network"
)

// Metrics is a response interceptor that counts outcomes in Prometheus.
type Metrics struct {
	requests     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	payloadBytes *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchkit_requests_total",
				Help: "Total responses received by method and status code",
			},
			[]string{"method", "status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchkit_request_failures_total",
				Help: "Total requests that produced no response, by reason",
			},
			[]string{"method", "reason"},
		),
		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetchkit_response_payload_bytes",
				Help:    "Size of response payloads",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.failures, m.payloadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// InterceptResponse implements network.ResponseInterceptor.
func (m *Metrics) InterceptResponse(_ context.Context, _ network.Sender, d *network.Descriptor, out network.Outcome) network.Outcome {
	method := "unknown"
	if d != nil {
		method = d.Method
	}

	if out.Failed() {
		m.failures.WithLabelValues(method, failureReason(out.Err)).Inc()
		return out
	}

	m.requests.WithLabelValues(method, strconv.Itoa(out.StatusCode)).Inc()
	m.payloadBytes.WithLabelValues(method).Observe(float64(len(out.Payload)))
	return out
}

func failureReason(err error) string {
	var classifier fkerrors.ErrorClassifier
	switch {
	case errors.Is(err, network.ErrVetoed):
		return "vetoed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &classifier):
		return classifier.ErrorType()
	default:
		return "other"
	}
}
