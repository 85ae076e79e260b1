package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Required []string `json:"required,omitempty"`
}

type RestApi struct{}

// GetLogger 获取上下文提供的日志器，对GetRequestLogger做封装，可实现解耦。
func (e *RestApi) GetLogger(c *gin.Context) *zap.Logger {
	return logger.GetRequestLogger(c)
}

// Error 通常错误数据处理
func (e *RestApi) Error(c *gin.Context, code int, label string, err error) {
	body := ErrorBody{Error: label}
	if err != nil {
		body.Message = err.Error()
	}
	e.Custom(c, code, body)
}

// OK 通常成功数据处理
func (e *RestApi) OK(c *gin.Context, data interface{}) {
	e.Custom(c, http.StatusOK, data)
}

// Created 新建成功
func (e *RestApi) Created(c *gin.Context, data interface{}) {
	e.Custom(c, http.StatusCreated, data)
}

// Custom 原样输出
func (e *RestApi) Custom(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
