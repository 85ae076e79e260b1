package logger

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const (
	TrafficKey ContextKey = "X-Request-Id"
	LoggerKey  ContextKey = "_customer-gateway-zap-logger-request"
)

var (
	Logger        = zap.NewNop()   //全局ZapLogger打印
	DefaultLogger = Logger.Sugar() //全局SugarLogger打印，用于简易打印
)

// SetRequestLogger gin 中间件：为每个请求生成/透传 X-Request-Id，并挂载带该字段的 logger
func SetRequestLogger(c *gin.Context) {
	requestID := c.GetHeader(string(TrafficKey))
	if requestID == "" {
		requestID = newRequestID()
	}
	c.Header(string(TrafficKey), requestID)

	requestLogger := Logger.With(zap.String("requestId", requestID))
	ctx := context.WithValue(c.Request.Context(), TrafficKey, requestID)
	ctx = context.WithValue(ctx, LoggerKey, requestLogger)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// GetRequestLogger 从 gin 上下文获得 logger
func GetRequestLogger(c *gin.Context) *zap.Logger {
	return FromContext(c.Request.Context())
}

// FromContext 从 context 获得请求 logger，没有时返回全局 logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return Logger
}

// RequestID 返回中间件写入的请求 ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(TrafficKey).(string)
	return id
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

func Info(args ...interface{}) {
	DefaultLogger.Info(args...)
}

func Infof(template string, args ...interface{}) {
	DefaultLogger.Infof(template, args...)
}

func Warn(args ...interface{}) {
	DefaultLogger.Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	DefaultLogger.Warnf(template, args...)
}

func Error(args ...interface{}) {
	DefaultLogger.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	DefaultLogger.Errorf(template, args...)
}
