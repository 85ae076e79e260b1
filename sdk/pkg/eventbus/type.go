package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrPublish 发布失败（连接就绪但 broker 拒绝或超时）
	ErrPublish = errors.New("eventbus: publish failed")
	// ErrConnect 建立连接失败
	ErrConnect = errors.New("eventbus: connect failed")
	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("eventbus: client closed")
)

// Message 在总线上传输的一条消息
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// MessageHandler 消息处理器函数类型
type MessageHandler func(ctx context.Context, msg *Message) error

// PublishResult 发布结果；Skipped 表示未就绪时被跳过
type PublishResult struct {
	Skipped   bool
	Partition int32
	Offset    int64
}

// Transport 具体 broker 的接入实现（kafka / nats / memory）
//
// 发布端和订阅端是两条独立连接，由 Client 按顺序建立、按顺序关闭。
// Consume 阻塞直到 ctx 结束或订阅端关闭。
type Transport interface {
	Name() string
	ConnectPublisher(ctx context.Context) error
	ConnectSubscriber(ctx context.Context) error
	Subscribe(ctx context.Context, topics []string) error
	Consume(ctx context.Context, handler MessageHandler) error
	Publish(ctx context.Context, msg *Message) (PublishResult, error)
	ClosePublisher() error
	CloseSubscriber() error
}

// State 客户端连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type atomicState struct {
	v int32
}

func (a *atomicState) Load() State {
	return State(atomic.LoadInt32(&a.v))
}

func (a *atomicState) Store(s State) {
	atomic.StoreInt32(&a.v, int32(s))
}

func (a *atomicState) CompareAndSwap(old, new State) bool {
	return atomic.CompareAndSwapInt32(&a.v, int32(old), int32(new))
}
