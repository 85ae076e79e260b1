package service

import (
	"errors"
	"strings"
)

var (
	// ErrValidation 请求参数缺失或非法，对应 4xx
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable 数据库连接或查询失败，对应 5xx，不自动重试
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError 携带缺失/非法字段
type ValidationError struct {
	Required []string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "missing required fields: " + strings.Join(e.Required, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
