package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryInterval  = 5 * time.Second
	defaultConnectTimeout = 30 * time.Second
	defaultPublishTimeout = 10 * time.Second
	defaultProcessTimeout = 30 * time.Second
)

// Option Client 可选项
type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetricsCollector(m MetricsCollector) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithRetryInterval 连接失败后的固定重试间隔
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithConnectTimeout 单次连接尝试的超时
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.processTimeout = d
		}
	}
}

// Client 监督 broker 连接生命周期的客户端
//
// 状态机：Disconnected -> Connecting -> Ready；连接失败回到 Disconnected，
// 间隔 retryInterval 后再次尝试，不限次数，直到成功或 Close。
// Ready 之后不会再回退。
type Client struct {
	transport Transport
	logger    *zap.Logger
	metrics   MetricsCollector
	limiter   *RateLimiter

	retryInterval  time.Duration
	connectTimeout time.Duration
	publishTimeout time.Duration
	processTimeout time.Duration

	state    atomicState
	attempts atomic.Int64
	closed   atomic.Bool

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewClient 创建客户端，不会发起连接
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport:      transport,
		logger:         zap.NewNop(),
		metrics:        NoOpMetricsCollector{},
		retryInterval:  defaultRetryInterval,
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
		processTimeout: defaultProcessTimeout,
		handlers:       make(map[string]MessageHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("transport", transport.Name()))
	return c
}

// Subscribe 注册主题处理器，必须在 Start 之前调用
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" || handler == nil {
		return fmt.Errorf("eventbus: topic and handler are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("eventbus: subscribe %s after start", topic)
	}
	if _, ok := c.handlers[topic]; ok {
		return fmt.Errorf("eventbus: topic %s already subscribed", topic)
	}
	c.handlers[topic] = handler
	return nil
}

// Start 在后台启动连接监督任务，立即返回
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if c.started {
		return fmt.Errorf("eventbus: client already started")
	}
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.supervise(runCtx)
	return nil
}

// IsReady 发布端、订阅端、订阅和消费循环均已就绪
func (c *Client) IsReady() bool {
	return c.state.Load() == StateReady
}

// State 当前连接状态
func (c *Client) State() State {
	return c.state.Load()
}

// Attempts 已发起的连接尝试次数
func (c *Client) Attempts() int64 {
	return c.attempts.Load()
}

func (c *Client) supervise(ctx context.Context) {
	defer c.wg.Done()

	for {
		err := c.connect(ctx)
		if err == nil || ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return
		}

		c.logger.Warn("Broker connection failed, will retry",
			zap.Int64("attempt", c.attempts.Load()),
			zap.Duration("retryIn", c.retryInterval),
			zap.Error(err))

		timer := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect 一次完整的连接尝试
func (c *Client) connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		return nil
	}
	c.attempts.Add(1)
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if err := c.establish(attemptCtx); err != nil {
		c.closePartial()
		c.state.CompareAndSwap(StateConnecting, StateDisconnected)
		c.metrics.RecordReconnect(false, time.Since(start))
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	// Close 可能已在连接期间发生，此时保持 Closed
	if !c.state.CompareAndSwap(StateConnecting, StateReady) {
		return ErrClosed
	}
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.metrics.RecordReconnect(true, time.Since(start))
	c.metrics.RecordConnection(true)
	c.logger.Info("Broker client ready",
		zap.Strings("topics", c.topics()),
		zap.Int64("attempt", c.attempts.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) establish(ctx context.Context) error {
	if err := c.transport.ConnectPublisher(ctx); err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	c.logger.Info("Broker publisher connected")

	if err := c.transport.ConnectSubscriber(ctx); err != nil {
		return fmt.Errorf("subscriber: %w", err)
	}
	c.logger.Info("Broker subscriber connected")

	if topics := c.topics(); len(topics) > 0 {
		if err := c.transport.Subscribe(ctx, topics); err != nil {
			return fmt.Errorf("subscribe %v: %w", topics, err)
		}
	}
	return nil
}

func (c *Client) closePartial() {
	if err := c.transport.CloseSubscriber(); err != nil {
		c.logger.Debug("Close partial subscriber failed", zap.Error(err))
	}
	if err := c.transport.ClosePublisher(); err != nil {
		c.logger.Debug("Close partial publisher failed", zap.Error(err))
	}
}

func (c *Client) topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (c *Client) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	c.mu.RLock()
	empty := len(c.handlers) == 0
	c.mu.RUnlock()
	if empty {
		return
	}

	if err := c.transport.Consume(ctx, c.dispatch); err != nil && ctx.Err() == nil {
		c.logger.Error("Consume loop stopped", zap.Error(err))
	}
}

// dispatch 处理单条消息；错误和 panic 只记录，不会中断消费循环
func (c *Client) dispatch(ctx context.Context, msg *Message) (err error) {
	c.mu.RLock()
	handler := c.handlers[msg.Topic]
	c.mu.RUnlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler panic: %v", r)
		}
		c.metrics.RecordConsume(msg.Topic, err == nil, time.Since(start))
		if err != nil {
			c.logger.Error("Failed to process message",
				zap.String("topic", msg.Topic),
				zap.String("key", msg.Key),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}()

	if handler == nil {
		return fmt.Errorf("eventbus: no handler for topic %s", msg.Topic)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, c.processTimeout)
	defer cancel()
	return handler(hctx, msg)
}

// Publish 未就绪时跳过并返回 Skipped；发送失败返回包装了 ErrPublish 的错误
func (c *Client) Publish(ctx context.Context, topic, key string, payload []byte) (PublishResult, error) {
	if c.closed.Load() {
		return PublishResult{}, ErrClosed
	}
	if !c.IsReady() {
		c.metrics.RecordPublishSkipped(topic)
		return PublishResult{Skipped: true}, nil
	}

	pctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	start := time.Now()
	res, err := c.transport.Publish(pctx, &Message{
		Topic:     topic,
		Key:       key,
		Value:     payload,
		Timestamp: start,
	})
	c.metrics.RecordPublish(topic, err == nil, time.Since(start))
	if err != nil {
		return PublishResult{}, fmt.Errorf("%w: topic %s: %w", ErrPublish, topic, err)
	}
	return res, nil
}

// Close 停止重连和消费，依次关闭发布端、订阅端
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.state.Store(StateClosed)

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("Timed out waiting for broker loops to stop", zap.Error(ctx.Err()))
	}

	var errs []error
	if err := c.transport.ClosePublisher(); err != nil {
		c.logger.Error("Close publisher failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	} else {
		c.logger.Info("Broker publisher closed")
	}
	if err := c.transport.CloseSubscriber(); err != nil {
		c.logger.Error("Close subscriber failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	} else {
		c.logger.Info("Broker subscriber closed")
	}
	c.metrics.RecordConnection(false)
	return errors.Join(errs...)
}
