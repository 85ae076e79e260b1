package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 顶层配置结构
type Config struct {
	Application *Application    `mapstructure:"application"`
	HTTP        *HTTPConfig     `mapstructure:"http" json:"http"`
	Logger      *Logger         `mapstructure:"logger"`
	Database    *Database       `mapstructure:"database"`
	EventBus    *EventBusConfig `mapstructure:"eventBus"`
	Tracing     *TracingConfig  `mapstructure:"tracing"`
}

var EventBusConfigInstance = new(EventBusConfig)

var AppConfig = &Config{
	Application: ApplicationConfig,
	Logger:      LoggerConfig,
	HTTP:        HttpConfig,
	Database:    DatabaseConfig,
	EventBus:    EventBusConfigInstance,
	Tracing:     TracingConfigInstance,
}

// envBindings 配置项与环境变量的对应关系，一个配置项可对应多个变量名
var envBindings = map[string][]string{
	"application.mode":                    {"APP_MODE", "NODE_ENV"},
	"application.name":                    {"SERVICE_NAME"},
	"http.host":                           {"HOST"},
	"http.port":                           {"PORT"},
	"http.shutdownTimeout":                {"SHUTDOWN_TIMEOUT"},
	"logger.level":                        {"LOG_LEVEL"},
	"logger.stdout":                       {"LOG_STDOUT"},
	"logger.path":                         {"LOG_PATH"},
	"logger.fileOutput":                   {"LOG_FILE_OUTPUT"},
	"database.driver":                     {"DB_DRIVER"},
	"database.source":                     {"DB_SOURCE", "DATABASE_URL"},
	"database.host":                       {"DB_HOST"},
	"database.port":                       {"DB_PORT"},
	"database.name":                       {"DB_NAME"},
	"database.user":                       {"DB_USER"},
	"database.password":                   {"DB_PASSWORD"},
	"database.sslMode":                    {"DB_SSLMODE"},
	"database.maxOpenConns":               {"DB_POOL_MAX"},
	"database.connMaxIdleTime":            {"DB_IDLE_TIMEOUT"},
	"database.connectTimeout":             {"DB_CONNECTION_TIMEOUT"},
	"database.queryTimeout":               {"DB_QUERY_TIMEOUT"},
	"database.replicas":                   {"DB_REPLICAS"},
	"database.autoMigrate":                {"DB_AUTO_MIGRATE"},
	"eventBus.type":                       {"EVENTBUS_TYPE"},
	"eventBus.reconnect.interval":         {"KAFKA_RECONNECT_INTERVAL"},
	"eventBus.kafka.brokers":              {"KAFKA_BROKER", "KAFKA_BROKERS"},
	"eventBus.kafka.clientId":             {"KAFKA_CLIENT_ID"},
	"eventBus.kafka.consumer.groupId":     {"KAFKA_GROUP_ID"},
	"eventBus.kafka.retry.max":            {"KAFKA_RETRIES"},
	"eventBus.kafka.retry.initialBackoff": {"KAFKA_INITIAL_RETRY"},
	"eventBus.nats.urls":                  {"NATS_URL"},
	"tracing.enabled":                     {"OTEL_ENABLED"},
	"tracing.endpoint":                    {"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// setDefaults 默认值对应 docker-compose 部署环境
func setDefaults(v *viper.Viper) {
	v.SetDefault("application.mode", "development")
	v.SetDefault("application.name", "customer-service")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3001)
	v.SetDefault("http.readTimeout", 10*time.Second)
	v.SetDefault("http.writeTimeout", 30*time.Second)
	v.SetDefault("http.idleTimeout", 60*time.Second)
	v.SetDefault("http.shutdownTimeout", 10*time.Second)
	v.SetDefault("http.metricsPath", "/metrics")

	v.SetDefault("logger.path", "temp/logs")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.stdout", true)
	v.SetDefault("logger.fileOutput", false)
	v.SetDefault("logger.maxSize", 50)
	v.SetDefault("logger.infoMaxAge", 3)
	v.SetDefault("logger.errorMaxAge", 14)
	v.SetDefault("logger.maxBackups", 20)
	v.SetDefault("logger.gormLoggerLevel", 3)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "customersdb")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxIdleTime", 30*time.Second)
	v.SetDefault("database.connectTimeout", 2*time.Second)
	v.SetDefault("database.queryTimeout", 5*time.Second)
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("eventBus.type", "kafka")
	v.SetDefault("eventBus.serviceName", "customer-service")
	v.SetDefault("eventBus.reconnect.interval", 5*time.Second)
	v.SetDefault("eventBus.topics.requests", "customer-requests")
	v.SetDefault("eventBus.topics.responses", "customer-responses")
	v.SetDefault("eventBus.kafka.brokers", []string{"kafka:9092"})
	v.SetDefault("eventBus.kafka.clientId", "customer-service")
	v.SetDefault("eventBus.kafka.consumer.groupId", "customer-service-group")
	v.SetDefault("eventBus.kafka.consumer.autoOffsetReset", "latest")
	v.SetDefault("eventBus.kafka.retry.max", 10)
	v.SetDefault("eventBus.kafka.retry.initialBackoff", 300*time.Millisecond)
	v.SetDefault("eventBus.kafka.producer.requiredAcks", 1)
	v.SetDefault("eventBus.nats.urls", []string{"nats://nats:4222"})
	v.SetDefault("eventBus.nats.clientId", "customer-service")
	v.SetDefault("eventBus.nats.maxReconnects", 10)
	v.SetDefault("eventBus.nats.reconnectWait", 2*time.Second)
	v.SetDefault("eventBus.nats.connectionTimeout", 5*time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "customer-service")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sampleRate", 1.0)
}

// Load 读取配置：默认值 < 配置文件（可选） < 环境变量
func Load(configYml string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败 %s: %w", key, err)
		}
	}

	if strings.TrimSpace(configYml) != "" {
		v.SetConfigFile(configYml)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		Application: new(Application),
		HTTP:        new(HTTPConfig),
		Logger:      new(Logger),
		Database:    new(Database),
		EventBus:    new(EventBusConfig),
		Tracing:     new(TracingConfig),
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.EventBus.SetDefaults()
	if cfg.EventBus.ServiceName == "" {
		cfg.EventBus.ServiceName = cfg.Application.Name
	}
	if err := cfg.EventBus.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setup 读取配置并映射到全局 AppConfig
func Setup(configYml string) error {
	cfg, err := Load(configYml)
	if err != nil {
		return err
	}

	*ApplicationConfig = *cfg.Application
	*HttpConfig = *cfg.HTTP
	*LoggerConfig = *cfg.Logger
	*DatabaseConfig = *cfg.Database
	*EventBusConfigInstance = *cfg.EventBus
	*TracingConfigInstance = *cfg.Tracing
	return nil
}

// Addr HTTP 监听地址
func (h *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}
