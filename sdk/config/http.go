package config

import "time"

// HTTPConfig HTTP服务器配置(Gin)
type HTTPConfig struct {
	Host            string        `mapstructure:"host" json:"host"`                       // 服务器绑定IP
	Port            int           `mapstructure:"port" json:"port"`                       // HTTP端口
	ReadTimeout     time.Duration `mapstructure:"readTimeout" json:"readTimeout"`         // 读取超时
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" json:"writeTimeout"`       // 写入超时
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" json:"idleTimeout"`         // 空闲超时
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" json:"shutdownTimeout"` // 优雅关闭总时限
	MetricsPath     string        `mapstructure:"metricsPath" json:"metricsPath"`         // Prometheus 暴露路径，空则不暴露
}

var HttpConfig = new(HTTPConfig)
