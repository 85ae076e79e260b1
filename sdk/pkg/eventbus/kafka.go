package eventbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

var errNotConnected = errors.New("not connected")

// KafkaTransport 基于 sarama 的 Kafka 接入：SyncProducer 发布，ConsumerGroup 订阅
type KafkaTransport struct {
	cfg    config.KafkaConfig
	logger *zap.Logger

	// 便于测试替换
	newProducer func(brokers []string, cfg *sarama.Config) (sarama.SyncProducer, error)
	newClient   func(brokers []string, cfg *sarama.Config) (sarama.Client, error)
	newGroup    func(groupID string, client sarama.Client) (sarama.ConsumerGroup, error)

	mu       sync.Mutex
	producer sarama.SyncProducer
	client   sarama.Client
	group    sarama.ConsumerGroup
	topics   []string
}

// NewKafkaTransport 创建 Kafka 接入，不会发起连接
func NewKafkaTransport(cfg config.KafkaConfig, logger *zap.Logger) *KafkaTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaTransport{
		cfg:         cfg,
		logger:      logger,
		newProducer: sarama.NewSyncProducer,
		newClient:   sarama.NewClient,
		newGroup:    sarama.NewConsumerGroupFromClient,
	}
}

func (k *KafkaTransport) Name() string { return "kafka" }

// configureSarama 将配置映射到 sarama.Config
func configureSarama(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_6_0_0
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}

	// 客户端内部重试（元数据刷新、发送）
	if cfg.Retry.Max > 0 {
		sc.Metadata.Retry.Max = cfg.Retry.Max
		sc.Producer.Retry.Max = cfg.Retry.Max
	}
	if cfg.Retry.InitialBackoff > 0 {
		sc.Metadata.Retry.Backoff = cfg.Retry.InitialBackoff
		sc.Producer.Retry.Backoff = cfg.Retry.InitialBackoff
	}

	// 生产者配置
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Producer.RequiredAcks)
	if cfg.Producer.Timeout > 0 {
		sc.Producer.Timeout = cfg.Producer.Timeout
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	switch cfg.Producer.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	// 消费者配置
	if cfg.Consumer.SessionTimeout > 0 {
		sc.Consumer.Group.Session.Timeout = cfg.Consumer.SessionTimeout
	}
	if cfg.Consumer.HeartbeatInterval > 0 {
		sc.Consumer.Group.Heartbeat.Interval = cfg.Consumer.HeartbeatInterval
	}
	switch cfg.Consumer.AutoOffsetReset {
	case "earliest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	// 网络配置
	if cfg.Net.DialTimeout > 0 {
		sc.Net.DialTimeout = cfg.Net.DialTimeout
	}
	if cfg.Net.ReadTimeout > 0 {
		sc.Net.ReadTimeout = cfg.Net.ReadTimeout
	}
	if cfg.Net.WriteTimeout > 0 {
		sc.Net.WriteTimeout = cfg.Net.WriteTimeout
	}
	return sc
}

// dialWithContext 在 ctx 结束时放弃等待；迟到的连接会被关闭
func dialWithContext[T io.Closer](ctx context.Context, dial func() (T, error)) (T, error) {
	type result struct {
		conn T
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := dial()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.conn.Close()
			}
		}()
		var zero T
		return zero, ctx.Err()
	}
}

func (k *KafkaTransport) ConnectPublisher(ctx context.Context) error {
	sc := configureSarama(k.cfg)
	producer, err := dialWithContext(ctx, func() (sarama.SyncProducer, error) {
		return k.newProducer(k.cfg.Brokers, sc)
	})
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}

	k.mu.Lock()
	k.producer = producer
	k.mu.Unlock()
	return nil
}

func (k *KafkaTransport) ConnectSubscriber(ctx context.Context) error {
	sc := configureSarama(k.cfg)
	client, err := dialWithContext(ctx, func() (sarama.Client, error) {
		return k.newClient(k.cfg.Brokers, sc)
	})
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}

	group, err := k.newGroup(k.cfg.Consumer.GroupID, client)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("create consumer group %s: %w", k.cfg.Consumer.GroupID, err)
	}

	k.mu.Lock()
	k.client = client
	k.group = group
	k.mu.Unlock()
	return nil
}

// Subscribe 刷新主题元数据并确认分区存在
func (k *KafkaTransport) Subscribe(ctx context.Context, topics []string) error {
	k.mu.Lock()
	client := k.client
	k.mu.Unlock()
	if client == nil {
		return fmt.Errorf("subscribe: %w", errNotConnected)
	}

	if err := client.RefreshMetadata(topics...); err != nil {
		return fmt.Errorf("refresh metadata: %w", err)
	}
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		partitions, err := client.Partitions(topic)
		if err != nil {
			return fmt.Errorf("topic %s: %w", topic, err)
		}
		k.logger.Info("Subscribed to topic",
			zap.String("topic", topic),
			zap.Int("partitions", len(partitions)),
			zap.String("groupId", k.cfg.Consumer.GroupID))
	}

	k.mu.Lock()
	k.topics = append([]string(nil), topics...)
	k.mu.Unlock()
	return nil
}

// Consume 阻塞消费，直到 ctx 结束或消费者组关闭
func (k *KafkaTransport) Consume(ctx context.Context, handler MessageHandler) error {
	k.mu.Lock()
	group, topics := k.group, k.topics
	k.mu.Unlock()
	if group == nil {
		return fmt.Errorf("consume: %w", errNotConnected)
	}

	h := &kafkaConsumerHandler{handler: handler}
	for {
		if err := group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			k.logger.Error("Consumer group session error", zap.Strings("topics", topics), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (k *KafkaTransport) Publish(ctx context.Context, msg *Message) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	k.mu.Lock()
	producer := k.producer
	k.mu.Unlock()
	if producer == nil {
		return PublishResult{}, errNotConnected
	}

	pm := &sarama.ProducerMessage{
		Topic:     msg.Topic,
		Value:     sarama.ByteEncoder(msg.Value),
		Timestamp: msg.Timestamp,
	}
	if msg.Key != "" {
		pm.Key = sarama.StringEncoder(msg.Key)
	}
	for key, value := range msg.Headers {
		pm.Headers = append(pm.Headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}

	partition, offset, err := producer.SendMessage(pm)
	if err != nil {
		return PublishResult{}, err
	}
	return PublishResult{Partition: partition, Offset: offset}, nil
}

func (k *KafkaTransport) ClosePublisher() error {
	k.mu.Lock()
	producer := k.producer
	k.producer = nil
	k.mu.Unlock()
	if producer == nil {
		return nil
	}
	return producer.Close()
}

func (k *KafkaTransport) CloseSubscriber() error {
	k.mu.Lock()
	group, client := k.group, k.client
	k.group, k.client = nil, nil
	k.mu.Unlock()

	var errs []error
	if group != nil {
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer group: %w", err))
		}
	}
	if client != nil && !client.Closed() {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka client: %w", err))
		}
	}
	return errors.Join(errs...)
}

// kafkaConsumerHandler Kafka消费者处理器
type kafkaConsumerHandler struct {
	handler MessageHandler
}

func (h *kafkaConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim 逐条处理；处理失败也标记位点，单条消息最多触发一次处理
func (h *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			_ = h.handler(session.Context(), fromConsumerMessage(message))
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func fromConsumerMessage(m *sarama.ConsumerMessage) *Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		if h != nil {
			headers[string(h.Key)] = string(h.Value)
		}
	}
	return &Message{
		Topic:     m.Topic,
		Key:       string(m.Key),
		Value:     m.Value,
		Headers:   headers,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Timestamp,
	}
}
