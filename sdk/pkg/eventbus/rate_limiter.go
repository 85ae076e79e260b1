package eventbus

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

// RateLimiter 消费端流量控制器
type RateLimiter struct {
	limiter   *rate.Limiter
	burstSize int
	rateLimit rate.Limit
	enabled   bool
	logger    *zap.Logger
}

// NewRateLimiter 创建流量控制器；未启用时 Wait 直接放行
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || cfg.RatePerSecond <= 0 {
		return &RateLimiter{logger: logger}
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(cfg.RatePerSecond)
	return &RateLimiter{
		limiter:   rate.NewLimiter(limit, burst),
		burstSize: burst,
		rateLimit: limit,
		enabled:   true,
		logger:    logger,
	}
}

// Wait 等待令牌，实现背压
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || !rl.enabled {
		return nil
	}

	start := time.Now()
	if err := rl.limiter.Wait(ctx); err != nil {
		return err
	}

	if waitTime := time.Since(start); waitTime > 100*time.Millisecond {
		rl.logger.Warn("Rate limiter caused significant delay",
			zap.Duration("waitTime", waitTime),
			zap.Float64("rateLimit", float64(rl.rateLimit)),
			zap.Int("burstSize", rl.burstSize))
	}
	return nil
}

// Enabled 是否启用
func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.enabled
}
