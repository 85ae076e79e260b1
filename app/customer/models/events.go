package models

import (
	"time"

	"github.com/google/uuid"
)

// EventTimeLayout 事件时间戳：UTC，毫秒精度
const EventTimeLayout = "2006-01-02T15:04:05.000Z"

// ResponseDateLayout 同步接口返回的日期格式，如 "Tue Mar 05 2024"
const ResponseDateLayout = "Mon Jan 02 2006"

// RequestEvent customer-requests 主题上的请求事件
type RequestEvent struct {
	RequestID  string `json:"requestId"`
	SellerName string `json:"sellerName"`
	Timestamp  string `json:"timestamp"`
}

// ResponseEvent customer-responses 主题上的响应事件，与请求同一个 requestId
type ResponseEvent struct {
	RequestID  string     `json:"requestId"`
	SellerName string     `json:"sellerName"`
	Customers  []Customer `json:"customers"`
	Timestamp  string     `json:"timestamp"`
}

// CustomerResponse POST / 的响应体
type CustomerResponse struct {
	Name      string     `json:"name"`
	Timestamp string     `json:"timestamp"`
	Customers []Customer `json:"customers"`
}

// NewRequestID 生成关联ID：req- 前缀加 UUIDv7
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "req-" + id.String()
}

func FormatEventTime(t time.Time) string {
	return t.UTC().Format(EventTimeLayout)
}
