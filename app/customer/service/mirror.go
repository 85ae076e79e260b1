package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/eventbus"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/json"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/tracing"
)

// Bus Mirror 依赖的总线能力
type Bus interface {
	Publish(ctx context.Context, topic, key string, payload []byte) (eventbus.PublishResult, error)
	IsReady() bool
}

// CustomerLister 读取全部客户
type CustomerLister interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}

// Mirror 将同步请求镜像到总线，并在消费端回放查询、发布关联响应
type Mirror struct {
	bus    Bus
	store  CustomerLister
	topics config.TopicsConfig
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewMirror(bus Bus, store CustomerLister, topics config.TopicsConfig, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	if topics.Requests == "" {
		topics.Requests = "customer-requests"
	}
	if topics.Responses == "" {
		topics.Responses = "customer-responses"
	}
	return &Mirror{
		bus:    bus,
		store:  store,
		topics: topics,
		log:    log.Named("mirror"),
		tracer: tracing.Tracer(),
		now:    time.Now,
	}
}

// Ready 总线是否就绪
func (m *Mirror) Ready() bool {
	return m.bus.IsReady()
}

// Topics 请求/响应主题
func (m *Mirror) Topics() config.TopicsConfig {
	return m.topics
}

// PublishRequest 以 requestId 为键发布请求事件
func (m *Mirror) PublishRequest(ctx context.Context, evt models.RequestEvent) (eventbus.PublishResult, error) {
	return m.publish(ctx, m.topics.Requests, evt.RequestID, evt)
}

// PublishResponse 以 requestId 为键发布响应事件
func (m *Mirror) PublishResponse(ctx context.Context, evt models.ResponseEvent) (eventbus.PublishResult, error) {
	return m.publish(ctx, m.topics.Responses, evt.RequestID, evt)
}

func (m *Mirror) publish(ctx context.Context, topic, key string, evt interface{}) (eventbus.PublishResult, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return eventbus.PublishResult{}, fmt.Errorf("marshal event for %s: %w", topic, err)
	}
	return m.bus.Publish(ctx, topic, key, payload)
}

// HandleRequest 消费请求事件：查询客户并发布同一 requestId 的响应
//
// 不区分事件来源，自身镜像出去的请求同样会被处理。
func (m *Mirror) HandleRequest(ctx context.Context, msg *eventbus.Message) (err error) {
	ctx, span := m.tracer.Start(ctx, "customer.handle_request",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.message.key", msg.Key),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var req models.RequestEvent
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("decode request event: %w", err)
	}
	if req.RequestID == "" {
		return errors.New("request event without requestId")
	}
	log := m.log.With(zap.String("requestId", req.RequestID), zap.String("sellerName", req.SellerName))
	log.Info("Request event received", zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset))

	customers, err := m.store.ListCustomers(ctx)
	if err != nil {
		return err
	}

	res, err := m.PublishResponse(ctx, models.ResponseEvent{
		RequestID:  req.RequestID,
		SellerName: req.SellerName,
		Customers:  customers,
		Timestamp:  models.FormatEventTime(m.now()),
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		log.Warn("Broker not ready, response skipped")
		return nil
	}
	log.Info("Published response", zap.String("topic", m.topics.Responses), zap.Int("customers", len(customers)))
	return nil
}
