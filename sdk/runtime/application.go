package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/database"
)

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

type Application struct {
	db       *gorm.DB               //数据库连接池
	engine   http.Handler           //路由引擎
	eventBus EventBus               //事件总线
	logger   *zap.Logger            //日志
	mux      sync.RWMutex           //互斥锁
	configs  map[string]interface{} // 系统参数
	drains   []shutdownHook         //HTTP 停止后、总线关闭前执行
	hooks    []shutdownHook         //关闭钩子

	server       *http.Server
	listener     net.Listener
	serveErr     chan error
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewConfig 默认值
func NewConfig() *Application {
	return &Application{
		logger:   zap.NewNop(),
		configs:  make(map[string]interface{}),
		serveErr: make(chan error, 1),
	}
}

func (e *Application) SetDb(db *gorm.DB) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.db = db
}

func (e *Application) GetDb() *gorm.DB {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.db
}

// SetEngine 设置路由引擎
func (e *Application) SetEngine(engine http.Handler) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.engine = engine
}

// GetEngine 获取路由引擎
func (e *Application) GetEngine() http.Handler {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.engine
}

func (e *Application) SetEventBus(bus EventBus) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.eventBus = bus
}

func (e *Application) GetEventBus() EventBus {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.eventBus
}

// SetLogger 设置日志组件
func (e *Application) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	e.mux.Lock()
	defer e.mux.Unlock()
	e.logger = l
}

// GetLogger 获取日志组件
func (e *Application) GetLogger() *zap.Logger {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.logger
}

// OnDrain 注册排空任务：HTTP 停止接收请求后、事件总线关闭前按注册顺序执行
func (e *Application) OnDrain(name string, fn func(ctx context.Context) error) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.drains = append(e.drains, shutdownHook{name: name, fn: fn})
}

// OnShutdown 钩子按注册顺序在数据库关闭后执行
func (e *Application) OnShutdown(name string, fn func(ctx context.Context) error) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.hooks = append(e.hooks, shutdownHook{name: name, fn: fn})
}

// SetConfig 设置对应key的config
func (e *Application) SetConfig(key string, value interface{}) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.configs[key] = value
}

// GetConfig 获取对应key的config
func (e *Application) GetConfig(key string) interface{} {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.configs[key]
}

// Start 先监听端口再对外服务，最后在后台连接事件总线
//
// 总线的生命周期只由 Shutdown 结束，ctx 取消不会中断消费。
func (e *Application) Start(ctx context.Context, cfg *config.HTTPConfig) error {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.server != nil {
		return errors.New("runtime: application already started")
	}
	if e.engine == nil {
		return errors.New("runtime: engine not set")
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	e.listener = ln
	e.server = &http.Server{
		Handler:      e.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	server, serveErr := e.server, e.serveErr
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	e.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	if e.eventBus != nil {
		if err := e.eventBus.Start(context.WithoutCancel(ctx)); err != nil {
			e.logger.Error("Event bus start failed", zap.Error(err))
		}
	}
	return nil
}

// Addr 实际监听地址，未启动时为空
func (e *Application) Addr() string {
	e.mux.RLock()
	defer e.mux.RUnlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// ServeErr HTTP 服务异常退出时收到错误；正常关闭时通道被关闭
func (e *Application) ServeErr() <-chan error {
	return e.serveErr
}

// Shutdown 依次关闭 HTTP、执行排空任务、关闭事件总线、数据库和钩子；单步失败只记录，继续后续步骤
func (e *Application) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		e.shutdownErr = e.shutdown(ctx)
	})
	return e.shutdownErr
}

func (e *Application) shutdown(ctx context.Context) error {
	e.mux.RLock()
	server, bus, db, log := e.server, e.eventBus, e.db, e.logger
	drains := append([]shutdownHook(nil), e.drains...)
	hooks := append([]shutdownHook(nil), e.hooks...)
	e.mux.RUnlock()

	var errs []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			log.Error("Shutdown step failed", zap.String("step", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		log.Info("Shutdown step done", zap.String("step", name))
	}

	if server != nil {
		step("http", func() error { return server.Shutdown(ctx) })
	}
	for _, d := range drains {
		d := d
		step(d.name, func() error { return d.fn(ctx) })
	}
	if bus != nil {
		step("eventbus", func() error { return bus.Close(ctx) })
	}
	if db != nil {
		step("database", func() error { return database.Close(db) })
	}
	for _, h := range hooks {
		h := h
		step(h.name, func() error { return h.fn(ctx) })
	}

	if len(errs) > 0 {
		log.Error("Error during shutdown", zap.Int("failed", len(errs)))
		return errors.Join(errs...)
	}
	log.Info("All connections closed gracefully")
	return nil
}
