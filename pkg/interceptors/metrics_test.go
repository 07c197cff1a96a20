package interceptors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/fetchkit/pkg/network"
)

func TestMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	m := newManager(t, statusSequence(200, 404, 200),
		network.WithResponseInterceptors(metrics),
	)
	for i := 0; i < 3; i++ {
		m.Request(context.Background(), http.MethodGet, "https://example.com", nil)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.payloadBytes))
}

func TestMetricsCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	failing := &scriptedTransport{
		respond: func(int, *network.Descriptor) (*network.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	m := newManager(t, failing, network.WithResponseInterceptors(metrics))
	m.Request(context.Background(), http.MethodGet, "https://example.com", nil)
	m.Request(context.Background(), http.MethodGet, "not a url", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("GET", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("unknown", "other")))
}

func TestNewMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
