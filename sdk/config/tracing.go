package config

// TracingConfig 链路追踪配置（OTLP/HTTP）
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"serviceName"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sampleRate"`
}

var TracingConfigInstance = new(TracingConfig)
