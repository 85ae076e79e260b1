package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryTransport 进程内总线，用于本地运行和测试
//
// 已订阅主题上的发布会回送给本进程的消费循环。
type MemoryTransport struct {
	mu           sync.Mutex
	pubReady     bool
	subReady     bool
	subscribed   map[string]bool
	offsets      map[string]int64
	published    []*Message
	inbox        chan *Message
	done         chan struct{}
	connectErr   error
	publishErr   error
	connectCalls int
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		subscribed: make(map[string]bool),
		offsets:    make(map[string]int64),
	}
}

func (m *MemoryTransport) Name() string { return "memory" }

// FailConnect 之后的连接尝试都返回 err；传 nil 恢复
func (m *MemoryTransport) FailConnect(err error) {
	m.mu.Lock()
	m.connectErr = err
	m.mu.Unlock()
}

// FailPublish 之后的发布都返回 err；传 nil 恢复
func (m *MemoryTransport) FailPublish(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

// ConnectCalls 发布端连接尝试次数
func (m *MemoryTransport) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

// Published 返回 topic 上已发布消息的副本；topic 为空返回全部
func (m *MemoryTransport) Published(topic string) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Message
	for _, msg := range m.published {
		if topic == "" || msg.Topic == topic {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out
}

func (m *MemoryTransport) ConnectPublisher(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	if m.connectErr != nil {
		return m.connectErr
	}
	m.pubReady = true
	return ctx.Err()
}

func (m *MemoryTransport) ConnectSubscriber(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.subReady = true
	m.inbox = make(chan *Message, 256)
	m.done = make(chan struct{})
	return ctx.Err()
}

func (m *MemoryTransport) Subscribe(_ context.Context, topics []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.subReady {
		return errNotConnected
	}
	for _, topic := range topics {
		m.subscribed[topic] = true
	}
	return nil
}

func (m *MemoryTransport) Consume(ctx context.Context, handler MessageHandler) error {
	m.mu.Lock()
	inbox, done := m.inbox, m.done
	m.mu.Unlock()
	if inbox == nil {
		return errNotConnected
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case msg := <-inbox:
			_ = handler(ctx, msg)
		}
	}
}

// Publish 记录消息；主题被订阅时投递给消费循环
func (m *MemoryTransport) Publish(ctx context.Context, msg *Message) (PublishResult, error) {
	m.mu.Lock()
	if !m.pubReady {
		m.mu.Unlock()
		return PublishResult{}, errNotConnected
	}
	if m.publishErr != nil {
		err := m.publishErr
		m.mu.Unlock()
		return PublishResult{}, err
	}

	stored := *msg
	stored.Offset = m.offsets[msg.Topic]
	m.offsets[msg.Topic]++
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	m.published = append(m.published, &stored)

	var inbox chan *Message
	var done chan struct{}
	if m.subReady && m.subscribed[msg.Topic] {
		inbox, done = m.inbox, m.done
	}
	m.mu.Unlock()

	if inbox != nil {
		delivered := stored
		select {
		case inbox <- &delivered:
		case <-done:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}
	return PublishResult{Offset: stored.Offset}, nil
}

// Inject 模拟外部生产者向已订阅主题投递消息
func (m *MemoryTransport) Inject(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	inbox, done := m.inbox, m.done
	ok := m.subReady && m.subscribed[msg.Topic]
	m.mu.Unlock()
	if !ok {
		return errors.New("memory transport: topic not subscribed")
	}
	select {
	case inbox <- msg:
		return nil
	case <-done:
		return errNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryTransport) ClosePublisher() error {
	m.mu.Lock()
	m.pubReady = false
	m.mu.Unlock()
	return nil
}

func (m *MemoryTransport) CloseSubscriber() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.subReady = false
	m.subscribed = make(map[string]bool)
	return nil
}
