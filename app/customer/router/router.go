package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/apis"
	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/service"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/middleware"
)

const defaultMetricsPath = "/metrics"

// Options 构建路由引擎所需的依赖
type Options struct {
	Gateway     *service.GatewayService
	Health      *service.HealthService
	Registry    *prometheus.Registry
	MetricsPath string
}

// NewEngine 挂载中间件、业务路由和 metrics
func NewEngine(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.SetRequestLogger, middleware.CORS())

	if opts.Registry != nil {
		path := opts.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.Use(middleware.Metrics(opts.Registry))
		r.GET(path, gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	InitCustomerRouter(r, opts.Gateway, opts.Health)
	return r
}

// InitCustomerRouter 注册客户相关路由
func InitCustomerRouter(r gin.IRoutes, gateway *service.GatewayService, health *service.HealthService) {
	api := apis.Customer{Gateway: gateway, Health: health}
	r.POST("/", api.Query)
	r.POST("/customers", api.Create)
	r.GET("/health", api.HealthCheck)
}
