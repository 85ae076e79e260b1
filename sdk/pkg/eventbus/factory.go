package eventbus

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

// NewTransport 按配置类型创建接入实现
func NewTransport(cfg *config.EventBusConfig, logger *zap.Logger) (Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "kafka":
		return NewKafkaTransport(cfg.Kafka, logger.Named("kafka")), nil
	case "nats":
		natsCfg := cfg.NATS
		if natsCfg.ClientID == "" {
			natsCfg.ClientID = cfg.ServiceName
		}
		return NewNATSTransport(natsCfg, logger.Named("nats")), nil
	case "memory":
		return NewMemoryTransport(), nil
	default:
		return nil, fmt.Errorf("unsupported eventbus type: %s", cfg.Type)
	}
}

// NewClientFromConfig 根据配置组装 Client：接入实现、超时、重试间隔和流量控制
func NewClientFromConfig(cfg *config.EventBusConfig, logger *zap.Logger, metrics MetricsCollector) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := NewTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewClient(transport,
		WithLogger(logger.Named("eventbus")),
		WithMetricsCollector(metrics),
		WithRateLimiter(NewRateLimiter(cfg.Subscriber.RateLimit, logger)),
		WithRetryInterval(cfg.Reconnect.Interval),
		WithConnectTimeout(cfg.Reconnect.ConnectTimeout),
		WithPublishTimeout(cfg.Publisher.PublishTimeout),
		WithProcessTimeout(cfg.Subscriber.ProcessTimeout),
	), nil
}
