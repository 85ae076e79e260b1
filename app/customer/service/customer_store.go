package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/database"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/service"
)

const defaultQueryTimeout = 5 * time.Second

// CustomerStore 客户数据访问：一条读查询、一条写入和一个连通性探测
type CustomerStore struct {
	service.Service
	queryTimeout time.Duration
}

func NewCustomerStore(db *gorm.DB, log *zap.Logger, queryTimeout time.Duration) *CustomerStore {
	if log == nil {
		log = zap.NewNop()
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &CustomerStore{
		Service:      service.Service{Orm: db, Log: log.Named("customer-store")},
		queryTimeout: queryTimeout,
	}
}

// queryContext 与调用方的取消解耦，客户端断开不会中断进行中的查询
func (s *CustomerStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
}

// ListCustomers 按 id 升序返回全部客户
func (s *CustomerStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var records []models.CustomerRecord
	if err := s.Orm.WithContext(qctx).Order("id ASC").Find(&records).Error; err != nil {
		s.Logger().Error("Database query error", zap.Error(err))
		return nil, fmt.Errorf("%w: list customers: %w", ErrStoreUnavailable, err)
	}

	customers := make([]models.Customer, 0, len(records))
	for _, r := range records {
		customers = append(customers, r.View())
	}
	return customers, nil
}

// InsertCustomer 插入一行，id 由数据库分配
func (s *CustomerStore) InsertCustomer(ctx context.Context, in models.NewCustomer) (models.Customer, error) {
	if in.Name == "" || in.Employees == nil {
		return models.Customer{}, &ValidationError{Required: []string{"name", "employees"}}
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	record := in.Record()
	if err := s.Orm.WithContext(qctx).Create(&record).Error; err != nil {
		s.Logger().Error("Database insert error", zap.String("name", in.Name), zap.Error(err))
		return models.Customer{}, fmt.Errorf("%w: insert customer: %w", ErrStoreUnavailable, err)
	}
	s.Logger().Info("New customer created", zap.String("name", record.Name), zap.Int64("id", record.ID))
	return record.View(), nil
}

// Ping 连通性探测，无副作用
func (s *CustomerStore) Ping(ctx context.Context) error {
	if err := database.Ping(ctx, s.Orm); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
