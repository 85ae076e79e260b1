package service

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 业务服务基类：持有连接池和日志器
type Service struct {
	Orm   *gorm.DB
	Log   *zap.Logger
	Error error
}

// AddError 累积错误
func (s *Service) AddError(err error) error {
	if err == nil {
		return s.Error
	}
	s.Error = errors.Join(s.Error, err)
	return s.Error
}

// Logger 返回日志器，未设置时为 no-op
func (s *Service) Logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
