package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

func testKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:  []string{"kafka:9092"},
		ClientID: "customer-service",
		Retry: config.RetryConfig{
			Max:            10,
			InitialBackoff: 300 * time.Millisecond,
		},
		Producer: config.ProducerConfig{RequiredAcks: 1, Compression: "snappy", Timeout: 5 * time.Second},
		Consumer: config.ConsumerConfig{GroupID: "customer-service-group", AutoOffsetReset: "latest"},
	}
}

// TestConfigureSarama 测试配置映射
func TestConfigureSarama(t *testing.T) {
	sc := configureSarama(testKafkaConfig())

	assert.Equal(t, "customer-service", sc.ClientID)
	assert.Equal(t, 10, sc.Metadata.Retry.Max)
	assert.Equal(t, 300*time.Millisecond, sc.Metadata.Retry.Backoff)
	assert.Equal(t, 10, sc.Producer.Retry.Max)
	assert.Equal(t, sarama.WaitForLocal, sc.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionSnappy, sc.Producer.Compression)
	assert.Equal(t, 5*time.Second, sc.Producer.Timeout)
	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.OffsetNewest, sc.Consumer.Offsets.Initial)
	assert.NoError(t, sc.Validate())
}

// TestConfigureSarama_Earliest 测试 earliest 偏移策略
func TestConfigureSarama_Earliest(t *testing.T) {
	cfg := testKafkaConfig()
	cfg.Consumer.AutoOffsetReset = "earliest"
	cfg.Producer.Compression = ""

	sc := configureSarama(cfg)
	assert.Equal(t, sarama.OffsetOldest, sc.Consumer.Offsets.Initial)
	assert.Equal(t, sarama.CompressionNone, sc.Producer.Compression)
}

// TestKafkaTransport_Publish 测试发布使用键、值和头部
func TestKafkaTransport_Publish(t *testing.T) {
	transport := NewKafkaTransport(testKafkaConfig(), nil)
	producer := mocks.NewSyncProducer(t, configureSarama(testKafkaConfig()))
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(pm *sarama.ProducerMessage) error {
		key, err := pm.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "req-1" {
			return errors.New("unexpected key " + string(key))
		}
		if pm.Topic != "customer-requests" {
			return errors.New("unexpected topic " + pm.Topic)
		}
		return nil
	})
	transport.newProducer = func([]string, *sarama.Config) (sarama.SyncProducer, error) {
		return producer, nil
	}

	require.NoError(t, transport.ConnectPublisher(context.Background()))
	_, err := transport.Publish(context.Background(), &Message{
		Topic:   "customer-requests",
		Key:     "req-1",
		Value:   []byte(`{"requestId":"req-1"}`),
		Headers: map[string]string{"source": "gateway"},
	})
	require.NoError(t, err)
	require.NoError(t, transport.ClosePublisher())
}

// TestKafkaTransport_PublishFailure 测试发送失败透传错误
func TestKafkaTransport_PublishFailure(t *testing.T) {
	transport := NewKafkaTransport(testKafkaConfig(), nil)
	producer := mocks.NewSyncProducer(t, configureSarama(testKafkaConfig()))
	producer.ExpectSendMessageAndFail(sarama.ErrLeaderNotAvailable)
	transport.newProducer = func([]string, *sarama.Config) (sarama.SyncProducer, error) {
		return producer, nil
	}

	require.NoError(t, transport.ConnectPublisher(context.Background()))
	_, err := transport.Publish(context.Background(), &Message{Topic: "customer-responses", Key: "req-1"})
	assert.ErrorIs(t, err, sarama.ErrLeaderNotAvailable)
	require.NoError(t, transport.ClosePublisher())
}

// TestKafkaTransport_NotConnected 测试未连接时的行为
func TestKafkaTransport_NotConnected(t *testing.T) {
	transport := NewKafkaTransport(testKafkaConfig(), nil)

	_, err := transport.Publish(context.Background(), &Message{Topic: "t"})
	assert.ErrorIs(t, err, errNotConnected)
	assert.ErrorIs(t, transport.Subscribe(context.Background(), []string{"t"}), errNotConnected)
	assert.ErrorIs(t, transport.Consume(context.Background(), nil), errNotConnected)
	assert.NoError(t, transport.ClosePublisher())
	assert.NoError(t, transport.CloseSubscriber())
}

// TestKafkaTransport_ConnectPublisherFailure 测试 broker 不可达时返回错误
func TestKafkaTransport_ConnectPublisherFailure(t *testing.T) {
	transport := NewKafkaTransport(testKafkaConfig(), nil)
	transport.newProducer = func([]string, *sarama.Config) (sarama.SyncProducer, error) {
		return nil, sarama.ErrOutOfBrokers
	}

	err := transport.ConnectPublisher(context.Background())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

// TestKafkaTransport_ConnectHonoursContext 测试连接阻塞时 ctx 超时立即返回
func TestKafkaTransport_ConnectHonoursContext(t *testing.T) {
	transport := NewKafkaTransport(testKafkaConfig(), nil)
	release := make(chan struct{})
	defer close(release)
	transport.newClient = func([]string, *sarama.Config) (sarama.Client, error) {
		<-release
		return nil, sarama.ErrOutOfBrokers
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := transport.ConnectSubscriber(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// fakeSession 最小化的 ConsumerGroupSession
type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, msg.Offset)
	s.mu.Unlock()
}

// fakeClaim 最小化的 ConsumerGroupClaim
type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "customer-requests" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

// TestKafkaConsumerHandler_MarksEveryMessage 测试处理失败的消息同样标记位点，循环继续
func TestKafkaConsumerHandler_MarksEveryMessage(t *testing.T) {
	var keys []string
	h := &kafkaConsumerHandler{handler: func(_ context.Context, msg *Message) error {
		keys = append(keys, msg.Key)
		if msg.Key == "req-1" {
			return errors.New("decode failed")
		}
		return nil
	}}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "customer-requests", Key: []byte("req-1"), Offset: 7}
	claim.messages <- &sarama.ConsumerMessage{
		Topic:   "customer-requests",
		Key:     []byte("req-2"),
		Offset:  8,
		Headers: []*sarama.RecordHeader{{Key: []byte("source"), Value: []byte("test")}},
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))

	assert.Equal(t, []string{"req-1", "req-2"}, keys)
	assert.Equal(t, []int64{7, 8}, session.marked)
}

// TestKafkaConsumerHandler_StopsOnSessionEnd 测试会话结束时退出
func TestKafkaConsumerHandler_StopsOnSessionEnd(t *testing.T) {
	h := &kafkaConsumerHandler{handler: func(context.Context, *Message) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.ConsumeClaim(&fakeSession{ctx: ctx}, &fakeClaim{messages: make(chan *sarama.ConsumerMessage)})
	assert.NoError(t, err)
}

// TestFromConsumerMessage 测试消息转换
func TestFromConsumerMessage(t *testing.T) {
	ts := time.Now()
	msg := fromConsumerMessage(&sarama.ConsumerMessage{
		Topic:     "customer-requests",
		Partition: 2,
		Offset:    11,
		Key:       []byte("req-9"),
		Value:     []byte(`{}`),
		Timestamp: ts,
		Headers:   []*sarama.RecordHeader{{Key: []byte("a"), Value: []byte("b")}, nil},
	})

	assert.Equal(t, "req-9", msg.Key)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(11), msg.Offset)
	assert.Equal(t, "b", msg.Headers["a"])
	assert.Equal(t, ts, msg.Timestamp)
}
