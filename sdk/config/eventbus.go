package config

import (
	"fmt"
	"time"
)

// ==========================================================================
// 核心配置结构 - 统一的EventBus配置入口
// ==========================================================================

// EventBusConfig 事件总线配置
type EventBusConfig struct {
	// 基础配置
	Type        string `mapstructure:"type"`        // kafka, nats, memory
	ServiceName string `mapstructure:"serviceName"` // 微服务名称

	// 连接监督（初始连接失败后的固定间隔重试）
	Reconnect ReconnectConfig `mapstructure:"reconnect"`

	// 发布端配置
	Publisher PublisherConfig `mapstructure:"publisher"`

	// 订阅端配置
	Subscriber SubscriberConfig `mapstructure:"subscriber"`

	// 业务主题
	Topics TopicsConfig `mapstructure:"topics"`

	// 具体实现配置
	Kafka KafkaConfig `mapstructure:"kafka"` // Kafka配置
	NATS  NATSConfig  `mapstructure:"nats"`  // NATS配置
}

// ReconnectConfig 连接重试配置
type ReconnectConfig struct {
	Interval       time.Duration `mapstructure:"interval"`       // 两次连接尝试之间的间隔（默认5秒）
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"` // 单次连接尝试超时
}

// TopicsConfig 请求/响应主题
type TopicsConfig struct {
	Requests  string `mapstructure:"requests"`
	Responses string `mapstructure:"responses"`
}

// PublisherConfig 发布端配置
type PublisherConfig struct {
	PublishTimeout time.Duration `mapstructure:"publishTimeout"` // 发布超时（默认10秒）
}

// SubscriberConfig 订阅端配置
type SubscriberConfig struct {
	ProcessTimeout time.Duration   `mapstructure:"processTimeout"` // 单条消息处理超时（默认30秒）
	RateLimit      RateLimitConfig `mapstructure:"rateLimit"`      // 流量控制
}

// RateLimitConfig 流量控制配置
type RateLimitConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	RatePerSecond float64 `mapstructure:"ratePerSecond"`
	BurstSize     int     `mapstructure:"burstSize"`
}

// ==========================================================================
// 特定实现配置 - 只包含各实现特有的配置
// ==========================================================================

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`  // Kafka集群地址
	ClientID string         `mapstructure:"clientId"` // 客户端ID
	Retry    RetryConfig    `mapstructure:"retry"`    // 客户端内部重试（元数据/发送）
	Producer ProducerConfig `mapstructure:"producer"` // 生产者配置
	Consumer ConsumerConfig `mapstructure:"consumer"` // 消费者配置
	Net      NetConfig      `mapstructure:"net"`      // 网络配置
}

// RetryConfig 客户端重试配置
type RetryConfig struct {
	Max            int           `mapstructure:"max"`            // 重试次数
	InitialBackoff time.Duration `mapstructure:"initialBackoff"` // 初始退避
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	RequiredAcks int           `mapstructure:"requiredAcks"` // 消息确认级别 (0=不确认, 1=leader确认, -1=所有副本确认)
	Compression  string        `mapstructure:"compression"`  // 压缩算法 (none, gzip, snappy, lz4, zstd)
	Timeout      time.Duration `mapstructure:"timeout"`      // 发送超时时间
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	GroupID           string        `mapstructure:"groupId"`           // 消费者组ID
	AutoOffsetReset   string        `mapstructure:"autoOffsetReset"`   // 偏移量重置策略 (earliest, latest)
	SessionTimeout    time.Duration `mapstructure:"sessionTimeout"`    // 会话超时时间
	HeartbeatInterval time.Duration `mapstructure:"heartbeatInterval"` // 心跳间隔
}

// NetConfig 网络配置
type NetConfig struct {
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// NATSConfig NATS配置
type NATSConfig struct {
	URLs              []string      `mapstructure:"urls"`              // NATS服务器地址
	ClientID          string        `mapstructure:"clientId"`          // 客户端ID
	QueueGroup        string        `mapstructure:"queueGroup"`        // 队列组（等价于Kafka消费者组）
	MaxReconnects     int           `mapstructure:"maxReconnects"`     // 最大重连次数
	ReconnectWait     time.Duration `mapstructure:"reconnectWait"`     // 重连等待时间
	ConnectionTimeout time.Duration `mapstructure:"connectionTimeout"` // 连接超时
	BufferSize        int           `mapstructure:"bufferSize"`        // 订阅通道缓冲
}

// ==========================================================================
// 配置验证和默认值设置
// ==========================================================================

// SetDefaults 为EventBusConfig设置默认值
func (c *EventBusConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "kafka"
	}
	if c.Reconnect.Interval == 0 {
		c.Reconnect.Interval = 5 * time.Second
	}
	if c.Reconnect.ConnectTimeout == 0 {
		c.Reconnect.ConnectTimeout = 30 * time.Second
	}
	if c.Publisher.PublishTimeout == 0 {
		c.Publisher.PublishTimeout = 10 * time.Second
	}
	if c.Subscriber.ProcessTimeout == 0 {
		c.Subscriber.ProcessTimeout = 30 * time.Second
	}
	if c.Topics.Requests == "" {
		c.Topics.Requests = "customer-requests"
	}
	if c.Topics.Responses == "" {
		c.Topics.Responses = "customer-responses"
	}
	if c.Kafka.Consumer.AutoOffsetReset == "" {
		// 与 fromBeginning: false 一致
		c.Kafka.Consumer.AutoOffsetReset = "latest"
	}
	if c.Kafka.Producer.Timeout == 0 {
		c.Kafka.Producer.Timeout = c.Publisher.PublishTimeout
	}
	if c.NATS.QueueGroup == "" {
		c.NATS.QueueGroup = c.Kafka.Consumer.GroupID
	}
	if c.NATS.BufferSize <= 0 {
		c.NATS.BufferSize = 256
	}
}

// Validate 验证EventBusConfig配置
func (c *EventBusConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("eventbus type is required")
	}

	if c.Type != "kafka" && c.Type != "nats" && c.Type != "memory" {
		return fmt.Errorf("unsupported eventbus type: %s", c.Type)
	}

	if c.Reconnect.Interval <= 0 {
		return fmt.Errorf("eventbus reconnect interval must be positive")
	}

	if c.Topics.Requests == "" || c.Topics.Responses == "" {
		return fmt.Errorf("eventbus request and response topics are required")
	}

	switch c.Type {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers cannot be empty")
		}
		if c.Kafka.Consumer.GroupID == "" {
			return fmt.Errorf("kafka consumer groupId is required")
		}
	case "nats":
		if len(c.NATS.URLs) == 0 {
			return fmt.Errorf("nats urls cannot be empty")
		}
	}

	return nil
}
