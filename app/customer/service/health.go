package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"

	defaultProbeTimeout = 2 * time.Second
)

// Pinger 数据库连通性探测
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker 总线就绪标记
type ReadinessChecker interface {
	IsReady() bool
}

// HealthServices 各依赖状态
type HealthServices struct {
	Database string `json:"database"`
	Kafka    string `json:"kafka"`
}

// HealthReport GET /health 响应体
type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  HealthServices `json:"services"`
}

// Healthy 整体状态只由数据库决定
func (r HealthReport) Healthy() bool {
	return r.Services.Database == StatusUp
}

// HealthService 聚合数据库（每次实时探测）和总线（读取就绪标记）的健康状态
type HealthService struct {
	db           Pinger
	bus          ReadinessChecker
	log          *zap.Logger
	probeTimeout time.Duration
	now          func() time.Time
}

func NewHealthService(db Pinger, bus ReadinessChecker, log *zap.Logger, probeTimeout time.Duration) *HealthService {
	if log == nil {
		log = zap.NewNop()
	}
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &HealthService{
		db:           db,
		bus:          bus,
		log:          log.Named("health"),
		probeTimeout: probeTimeout,
		now:          time.Now,
	}
}

func (h *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    StatusDown,
		Timestamp: models.FormatEventTime(h.now()),
		Services: HealthServices{
			Database: StatusDown,
			Kafka:    StatusDown,
		},
	}
	if h.bus != nil && h.bus.IsReady() {
		report.Services.Kafka = StatusUp
	}

	pctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()
	if err := h.db.Ping(pctx); err != nil {
		h.log.Warn("Health check - database error", zap.Error(err))
	} else {
		report.Services.Database = StatusUp
	}

	if report.Healthy() {
		report.Status = StatusUp
	}
	return report
}
