package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrometheusMetricsCollector 测试客户端各路径都会记录指标
func TestPrometheusMetricsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusMetricsCollector("customer", reg)

	transport := NewMemoryTransport()
	transport.FailConnect(errors.New("broker down"))
	c := newTestClient(t, transport, WithMetricsCollector(collector))

	_, err := c.Publish(context.Background(), "customer-requests", "req-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.publishSkipped.WithLabelValues("customer-requests")))

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return transport.ConnectCalls() >= 2 }, time.Second, 5*time.Millisecond)
	transport.FailConnect(nil)
	require.Eventually(t, c.IsReady, time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, testutil.ToFloat64(collector.reconnectTotal.WithLabelValues("failure")), 2.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reconnectTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.connected))

	_, err = c.Publish(context.Background(), "customer-requests", "req-2", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.publishTotal.WithLabelValues("customer-requests", "success")))
}

// TestNoOpMetricsCollector 测试空实现可安全调用
func TestNoOpMetricsCollector(t *testing.T) {
	var m MetricsCollector = NoOpMetricsCollector{}
	assert.NotPanics(t, func() {
		m.RecordPublish("t", true, time.Millisecond)
		m.RecordPublishSkipped("t")
		m.RecordConsume("t", false, time.Millisecond)
		m.RecordConnection(true)
		m.RecordReconnect(false, time.Millisecond)
	})
}
