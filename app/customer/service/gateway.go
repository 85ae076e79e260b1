package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/tracing"
)

const defaultMirrorTimeout = 10 * time.Second

// CustomerRepository 网关依赖的存储能力
type CustomerRepository interface {
	CustomerLister
	InsertCustomer(ctx context.Context, in models.NewCustomer) (models.Customer, error)
}

// GatewayService 同步接口编排：尽力镜像到总线，以数据库结果为准同步返回
type GatewayService struct {
	store    CustomerRepository
	mirror   *Mirror
	log      *zap.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time

	mirrorTimeout time.Duration
	inflight      sync.WaitGroup
}

func NewGatewayService(store CustomerRepository, mirror *Mirror, log *zap.Logger) *GatewayService {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &GatewayService{
		store:         store,
		mirror:        mirror,
		log:           log.Named("gateway"),
		validate:      v,
		tracer:        tracing.Tracer(),
		now:           time.Now,
		mirrorTimeout: defaultMirrorTimeout,
	}
}

// HandleCustomerRequest 处理 POST /：校验、镜像请求事件、查询客户、返回
//
// 镜像发布在后台进行，其耗时与失败都不影响同步响应。
func (g *GatewayService) HandleCustomerRequest(ctx context.Context, sellerName string) (*models.CustomerResponse, error) {
	ctx, span := g.tracer.Start(ctx, "customer.request", trace.WithAttributes(attribute.String("seller.name", sellerName)))
	defer span.End()

	log := logger.FromContext(ctx)
	if strings.TrimSpace(sellerName) == "" {
		err := &ValidationError{Required: []string{"name"}, Reason: "name is required"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	requestID := models.NewRequestID()
	span.SetAttributes(attribute.String("request.id", requestID))
	log = log.With(zap.String("correlationId", requestID))
	log.Info("Received request from seller", zap.String("sellerName", sellerName))

	g.mirrorRequest(ctx, log, models.RequestEvent{
		RequestID:  requestID,
		SellerName: sellerName,
		Timestamp:  models.FormatEventTime(g.now()),
	})

	customers, err := g.store.ListCustomers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &models.CustomerResponse{
		Name:      sellerName,
		Timestamp: g.now().Format(models.ResponseDateLayout),
		Customers: customers,
	}, nil
}

// mirrorRequest 未就绪时直接跳过；就绪时后台发布，结果只记录日志
func (g *GatewayService) mirrorRequest(ctx context.Context, log *zap.Logger, evt models.RequestEvent) {
	if g.mirror == nil || !g.mirror.Ready() {
		log.Warn("Broker not ready, skipping message publishing")
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.mirrorTimeout)
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		defer cancel()

		res, err := g.mirror.PublishRequest(pctx, evt)
		switch {
		case err != nil:
			log.Error("Failed to publish request event", zap.Error(err))
		case res.Skipped:
			log.Warn("Broker not ready, skipping message publishing")
		default:
			log.Info("Published request event",
				zap.String("topic", g.mirror.Topics().Requests),
				zap.Int32("partition", res.Partition),
				zap.Int64("offset", res.Offset))
		}
	}()
}

// WaitMirrors 等待后台镜像发布结束，或 ctx 结束
func (g *GatewayService) WaitMirrors(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateCustomer 校验后写入，返回带规模的客户
func (g *GatewayService) CreateCustomer(ctx context.Context, in models.NewCustomer) (models.Customer, error) {
	if err := g.validate.Struct(in); err != nil {
		return models.Customer{}, toValidationError(err)
	}
	return g.store.InsertCustomer(ctx, in)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Reason: err.Error()}
	}

	missing := make([]string, 0, len(verrs))
	var invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field()+" failed "+fe.Tag())
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Required: []string{"name", "employees"}, Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}
	return &ValidationError{Reason: "invalid fields: " + strings.Join(invalid, "; ")}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
