package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

// MessageKeyHeader NATS 没有消息键，键放在该头部
const MessageKeyHeader = "Message-Key"

// NATSTransport 基于 nats.go 的接入：发布端、订阅端各一条连接，队列组等价于消费者组
type NATSTransport struct {
	cfg    config.NATSConfig
	logger *zap.Logger

	mu      sync.Mutex
	pubConn *nats.Conn
	subConn *nats.Conn
	subs    []*nats.Subscription
	msgs    chan *nats.Msg
}

func NewNATSTransport(cfg config.NATSConfig, logger *zap.Logger) *NATSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSTransport{cfg: cfg, logger: logger}
}

func (n *NATSTransport) Name() string { return "nats" }

func (n *NATSTransport) options(role string) []nats.Option {
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s-%s", n.cfg.ClientID, role)),
		nats.MaxReconnects(n.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.logger.Warn("NATS disconnected", zap.String("role", role), zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("role", role), zap.String("url", c.ConnectedUrl()))
		}),
	}
	if n.cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(n.cfg.ReconnectWait))
	}
	if n.cfg.ConnectionTimeout > 0 {
		opts = append(opts, nats.Timeout(n.cfg.ConnectionTimeout))
	}
	return opts
}

type natsConn struct{ *nats.Conn }

func (c natsConn) Close() error {
	c.Conn.Close()
	return nil
}

func (n *NATSTransport) dial(ctx context.Context, role string) (*nats.Conn, error) {
	url := strings.Join(n.cfg.URLs, ",")
	conn, err := dialWithContext(ctx, func() (natsConn, error) {
		c, err := nats.Connect(url, n.options(role)...)
		return natsConn{c}, err
	})
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return conn.Conn, nil
}

func (n *NATSTransport) ConnectPublisher(ctx context.Context) error {
	conn, err := n.dial(ctx, "publisher")
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.pubConn = conn
	n.mu.Unlock()
	return nil
}

func (n *NATSTransport) ConnectSubscriber(ctx context.Context) error {
	conn, err := n.dial(ctx, "subscriber")
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.subConn = conn
	n.mu.Unlock()
	return nil
}

func (n *NATSTransport) Subscribe(ctx context.Context, topics []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subConn == nil {
		return fmt.Errorf("subscribe: %w", errNotConnected)
	}

	bufferSize := n.cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	msgs := make(chan *nats.Msg, bufferSize)
	for _, topic := range topics {
		var (
			sub *nats.Subscription
			err error
		)
		if n.cfg.QueueGroup != "" {
			sub, err = n.subConn.ChanQueueSubscribe(topic, n.cfg.QueueGroup, msgs)
		} else {
			sub, err = n.subConn.ChanSubscribe(topic, msgs)
		}
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		n.subs = append(n.subs, sub)
		n.logger.Info("Subscribed to subject", zap.String("subject", topic), zap.String("queueGroup", n.cfg.QueueGroup))
	}
	if err := n.subConn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}
	n.msgs = msgs
	return nil
}

func (n *NATSTransport) Consume(ctx context.Context, handler MessageHandler) error {
	n.mu.Lock()
	msgs := n.msgs
	n.mu.Unlock()
	if msgs == nil {
		return fmt.Errorf("consume: %w", errNotConnected)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			_ = handler(ctx, fromNATSMessage(m))
		}
	}
}

func (n *NATSTransport) Publish(ctx context.Context, msg *Message) (PublishResult, error) {
	n.mu.Lock()
	conn := n.pubConn
	n.mu.Unlock()
	if conn == nil {
		return PublishResult{}, errNotConnected
	}

	m := nats.NewMsg(msg.Topic)
	m.Data = msg.Value
	for key, value := range msg.Headers {
		m.Header.Set(key, value)
	}
	if msg.Key != "" {
		m.Header.Set(MessageKeyHeader, msg.Key)
	}
	if err := conn.PublishMsg(m); err != nil {
		return PublishResult{}, err
	}

	// 等待服务端确认收到，近似 Kafka 的同步发送
	if _, ok := ctx.Deadline(); ok {
		if err := conn.FlushWithContext(ctx); err != nil {
			return PublishResult{}, err
		}
	} else if err := conn.FlushTimeout(defaultPublishTimeout); err != nil {
		return PublishResult{}, err
	}
	return PublishResult{}, nil
}

func (n *NATSTransport) ClosePublisher() error {
	n.mu.Lock()
	conn := n.pubConn
	n.pubConn = nil
	n.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Drain()
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}

func (n *NATSTransport) CloseSubscriber() error {
	n.mu.Lock()
	conn, subs := n.subConn, n.subs
	n.subConn, n.subs, n.msgs = nil, nil, nil
	n.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		conn.Close()
	}
	return errors.Join(errs...)
}

func fromNATSMessage(m *nats.Msg) *Message {
	headers := make(map[string]string, len(m.Header))
	for key := range m.Header {
		headers[key] = m.Header.Get(key)
	}
	return &Message{
		Topic:     m.Subject,
		Key:       m.Header.Get(MessageKeyHeader),
		Value:     m.Data,
		Headers:   headers,
		Timestamp: time.Now(),
	}
}
