package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 总线指标收集接口
type MetricsCollector interface {
	RecordPublish(topic string, success bool, duration time.Duration)
	RecordPublishSkipped(topic string)
	RecordConsume(topic string, success bool, duration time.Duration)
	RecordConnection(connected bool)
	RecordReconnect(success bool, duration time.Duration)
}

// NoOpMetricsCollector 不做任何记录
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordPublish(string, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordPublishSkipped(string)               {}
func (NoOpMetricsCollector) RecordConsume(string, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordConnection(bool)                     {}
func (NoOpMetricsCollector) RecordReconnect(bool, time.Duration)       {}

// PrometheusMetricsCollector Prometheus 指标收集器
type PrometheusMetricsCollector struct {
	publishTotal   *prometheus.CounterVec
	publishSkipped *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec

	consumeTotal   *prometheus.CounterVec
	consumeLatency *prometheus.HistogramVec

	connected        prometheus.Gauge
	reconnectTotal   *prometheus.CounterVec
	reconnectLatency prometheus.Histogram
}

// NewPrometheusMetricsCollector 创建并注册到 reg；reg 为 nil 时使用默认注册表
func NewPrometheusMetricsCollector(namespace string, reg prometheus.Registerer) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "eventbus"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetricsCollector{
		publishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eventbus_publish_total",
				Help:      "Total number of publish attempts by result",
			},
			[]string{"topic", "result"},
		),
		publishSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eventbus_publish_skipped_total",
				Help:      "Total number of messages skipped because the bus was not ready",
			},
			[]string{"topic"},
		),
		publishLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "eventbus_publish_latency_seconds",
				Help:      "Publish latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
		consumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eventbus_consume_total",
				Help:      "Total number of consumed messages by result",
			},
			[]string{"topic", "result"},
		),
		consumeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "eventbus_consume_latency_seconds",
				Help:      "Consume latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
		connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "eventbus_connected",
				Help:      "Connection status (1=connected, 0=disconnected)",
			},
		),
		reconnectTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eventbus_connect_attempts_total",
				Help:      "Total number of connection attempts by result",
			},
			[]string{"result"},
		),
		reconnectLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "eventbus_connect_latency_seconds",
				Help:      "Connection attempt latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (p *PrometheusMetricsCollector) RecordPublish(topic string, success bool, duration time.Duration) {
	p.publishTotal.WithLabelValues(topic, resultLabel(success)).Inc()
	p.publishLatency.WithLabelValues(topic).Observe(duration.Seconds())
}

func (p *PrometheusMetricsCollector) RecordPublishSkipped(topic string) {
	p.publishSkipped.WithLabelValues(topic).Inc()
}

func (p *PrometheusMetricsCollector) RecordConsume(topic string, success bool, duration time.Duration) {
	p.consumeTotal.WithLabelValues(topic, resultLabel(success)).Inc()
	p.consumeLatency.WithLabelValues(topic).Observe(duration.Seconds())
}

func (p *PrometheusMetricsCollector) RecordConnection(connected bool) {
	if connected {
		p.connected.Set(1)
		return
	}
	p.connected.Set(0)
}

func (p *PrometheusMetricsCollector) RecordReconnect(success bool, duration time.Duration) {
	p.reconnectTotal.WithLabelValues(resultLabel(success)).Inc()
	p.reconnectLatency.Observe(duration.Seconds())
}
