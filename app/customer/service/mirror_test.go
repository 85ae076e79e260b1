package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/eventbus"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/json"
)

type stubLister struct {
	customers []models.Customer
	err       error
	calls     int
}

func (s *stubLister) ListCustomers(context.Context) ([]models.Customer, error) {
	s.calls++
	return s.customers, s.err
}

func requestMessage(t *testing.T, evt models.RequestEvent) *eventbus.Message {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return &eventbus.Message{Topic: "customer-requests", Key: evt.RequestID, Value: payload}
}

func TestNewMirror_DefaultTopics(t *testing.T) {
	m := NewMirror(&fakeBus{}, &stubLister{}, config.TopicsConfig{}, nil)
	assert.Equal(t, "customer-requests", m.Topics().Requests)
	assert.Equal(t, "customer-responses", m.Topics().Responses)
}

// TestMirror_HandleRequest 测试响应事件与请求同一 requestId，且同时作为消息键
func TestMirror_HandleRequest(t *testing.T) {
	bus := &fakeBus{ready: true}
	lister := &stubLister{customers: []models.Customer{
		{ID: 1, Name: "Acme", Employees: 50, Size: models.SizeSmall},
	}}
	m := NewMirror(bus, lister, config.TopicsConfig{}, nil)
	m.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }

	err := m.HandleRequest(context.Background(), requestMessage(t, models.RequestEvent{
		RequestID: "r1", SellerName: "Bob", Timestamp: "2024-03-05T09:59:59.000Z",
	}))
	require.NoError(t, err)

	out := bus.messages("customer-responses")
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].key)

	var resp models.ResponseEvent
	require.NoError(t, json.Unmarshal(out[0].payload, &resp))
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, "Bob", resp.SellerName)
	assert.Equal(t, "2024-03-05T10:00:00.000Z", resp.Timestamp)
	assert.Equal(t, lister.customers, resp.Customers)
	assert.Empty(t, bus.messages("customer-requests"))
}

// TestMirror_HandleRequestEmptyStore 测试空表时 customers 为 []
func TestMirror_HandleRequestEmptyStore(t *testing.T) {
	bus := &fakeBus{ready: true}
	m := NewMirror(bus, &stubLister{customers: []models.Customer{}}, config.TopicsConfig{}, nil)

	require.NoError(t, m.HandleRequest(context.Background(), requestMessage(t, models.RequestEvent{RequestID: "r2"})))

	out := bus.messages("customer-responses")
	require.Len(t, out, 1)
	assert.Contains(t, string(out[0].payload), `"customers":[]`)
}

func TestMirror_HandleRequestRejectsBadPayload(t *testing.T) {
	bus := &fakeBus{ready: true}
	lister := &stubLister{}
	m := NewMirror(bus, lister, config.TopicsConfig{}, nil)

	err := m.HandleRequest(context.Background(), &eventbus.Message{Topic: "customer-requests", Value: []byte("not json")})
	assert.Error(t, err)

	err = m.HandleRequest(context.Background(), &eventbus.Message{Topic: "customer-requests", Value: []byte(`{"sellerName":"Bob"}`)})
	assert.Error(t, err)

	assert.Zero(t, lister.calls)
	assert.Empty(t, bus.messages("customer-responses"))
}

// TestMirror_HandleRequestStoreFailure 测试查询失败时不发布响应
func TestMirror_HandleRequestStoreFailure(t *testing.T) {
	bus := &fakeBus{ready: true}
	m := NewMirror(bus, &stubLister{err: ErrStoreUnavailable}, config.TopicsConfig{}, nil)

	err := m.HandleRequest(context.Background(), requestMessage(t, models.RequestEvent{RequestID: "r3"}))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, bus.messages("customer-responses"))
}

func TestMirror_HandleRequestPublishFailure(t *testing.T) {
	bus := &fakeBus{ready: true, err: errors.New("broker gone")}
	m := NewMirror(bus, &stubLister{customers: []models.Customer{}}, config.TopicsConfig{}, nil)

	err := m.HandleRequest(context.Background(), requestMessage(t, models.RequestEvent{RequestID: "r4"}))
	assert.EqualError(t, err, "broker gone")
}

// TestMirror_HandleRequestSkipped 测试总线未就绪时跳过响应不算失败
func TestMirror_HandleRequestSkipped(t *testing.T) {
	bus := &fakeBus{}
	m := NewMirror(bus, &stubLister{customers: []models.Customer{}}, config.TopicsConfig{}, nil)

	assert.NoError(t, m.HandleRequest(context.Background(), requestMessage(t, models.RequestEvent{RequestID: "r5"})))
	assert.Empty(t, bus.messages("customer-responses"))
}
