package apis

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/service"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/restapi"
)

type Customer struct {
	restapi.RestApi
	Gateway *service.GatewayService
	Health  *service.HealthService
}

type customerQuery struct {
	Name string `json:"name" form:"name"`
}

// createCustomerRequest employees 可以是数字或数字字符串
type createCustomerRequest struct {
	Name         string      `json:"name" form:"name"`
	Employees    interface{} `json:"employees" form:"-"`
	ContactName  string      `json:"contactName" form:"contactName"`
	ContactEmail string      `json:"contactEmail" form:"contactEmail"`
}

// Query 查询卖家可见的客户列表
// @Summary 客户列表
// @Param data body customerQuery true "卖家"
// @Success 200 {object} models.CustomerResponse
// @Router / [post]
func (e Customer) Query(c *gin.Context) {
	var req customerQuery
	if err := c.ShouldBind(&req); err != nil {
		e.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := e.Gateway.HandleCustomerRequest(c.Request.Context(), req.Name)
	if err != nil {
		e.fail(c, err, "Internal server error")
		return
	}
	e.OK(c, resp)
}

// Create 新增客户
// @Summary 新增客户
// @Param data body createCustomerRequest true "客户"
// @Success 201 {object} models.Customer
// @Router /customers [post]
func (e Customer) Create(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBind(&req); err != nil {
		e.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if c.ContentType() != binding.MIMEJSON {
		if v, ok := c.GetPostForm("employees"); ok {
			req.Employees = v
		}
	}

	employees, err := parseEmployees(req.Employees)
	if err != nil {
		e.fail(c, err, "Failed to create customer")
		return
	}

	created, err := e.Gateway.CreateCustomer(c.Request.Context(), models.NewCustomer{
		Name:         strings.TrimSpace(req.Name),
		Employees:    employees,
		ContactName:  optional(req.ContactName),
		ContactEmail: optional(req.ContactEmail),
	})
	if err != nil {
		e.fail(c, err, "Failed to create customer")
		return
	}
	e.Created(c, gin.H{
		"message":  "Customer created successfully",
		"customer": created,
	})
}

// HealthCheck 数据库不可用时返回 503
// @Summary 健康检查
// @Success 200 {object} service.HealthReport
// @Failure 503 {object} service.HealthReport
// @Router /health [get]
func (e Customer) HealthCheck(c *gin.Context) {
	report := e.Health.Check(c.Request.Context())
	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
	}
	e.Custom(c, code, report)
}

// fail 校验错误 400，其余 500
func (e Customer) fail(c *gin.Context, err error, internalLabel string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr) && len(verr.Required) > 0:
		e.Custom(c, http.StatusBadRequest, restapi.ErrorBody{
			Error:    "Missing required fields",
			Message:  verr.Error(),
			Required: verr.Required,
		})
	case errors.Is(err, service.ErrValidation):
		e.Error(c, http.StatusBadRequest, "Invalid fields", err)
	default:
		e.GetLogger(c).Error("Error processing request", zap.String("path", c.FullPath()), zap.Error(err))
		e.Error(c, http.StatusInternalServerError, internalLabel, err)
	}
}

// parseEmployees nil 或空字符串视为缺失
func parseEmployees(v interface{}) (*int, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		n, err := cast.ToIntE(strings.TrimSpace(t))
		if err != nil {
			return nil, &service.ValidationError{Reason: fmt.Sprintf("employees must be a number, got %q", t)}
		}
		return &n, nil
	case float64:
		if math.IsInf(t, 0) || t != math.Trunc(t) {
			return nil, &service.ValidationError{Reason: fmt.Sprintf("employees must be an integer, got %v", t)}
		}
		n, err := cast.ToIntE(t)
		if err != nil {
			return nil, &service.ValidationError{Reason: err.Error()}
		}
		return &n, nil
	case int, int64:
		n, err := cast.ToIntE(t)
		if err != nil {
			return nil, &service.ValidationError{Reason: err.Error()}
		}
		return &n, nil
	default:
		return nil, &service.ValidationError{Reason: fmt.Sprintf("employees must be a number, got %T", v)}
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
