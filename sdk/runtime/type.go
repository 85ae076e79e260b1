package runtime

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

type Runtime interface {
	// SetDb 设置数据库连接池，关闭时最后释放
	SetDb(db *gorm.DB)
	GetDb() *gorm.DB

	// SetEngine 使用的路由
	SetEngine(engine http.Handler)
	GetEngine() http.Handler

	// SetEventBus 设置事件总线，HTTP 开始监听后才会连接
	SetEventBus(bus EventBus)
	GetEventBus() EventBus

	SetLogger(logger *zap.Logger)
	GetLogger() *zap.Logger

	// OnShutdown 注册在数据库关闭之后执行的清理函数
	OnShutdown(name string, fn func(ctx context.Context) error)

	// SetConfig 设置系统参数
	SetConfig(key string, value interface{})
	GetConfig(key string) interface{}

	Start(ctx context.Context, cfg *config.HTTPConfig) error
	Addr() string
	ServeErr() <-chan error
	Shutdown(ctx context.Context) error
}

// EventBus 生命周期内管理的总线客户端
type EventBus interface {
	Start(ctx context.Context) error
	IsReady() bool
	Close(ctx context.Context) error
}
