package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
)

// TestCustomerStore_ListOrderedAndIdempotent 测试按 id 排序且重复查询结果一致
func TestCustomerStore_ListOrderedAndIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedDemo(t, db)
	store := NewCustomerStore(db, nil, time.Second)

	first, err := store.ListCustomers(context.Background())
	require.NoError(t, err)
	second, err := store.ListCustomers(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Less(t, first[0].ID, first[1].ID)

	assert.Equal(t, "Acme", first[0].Name)
	assert.Equal(t, models.SizeSmall, first[0].Size)
	assert.Nil(t, first[0].ContactInfo)

	assert.Equal(t, "Globex", first[1].Name)
	assert.Equal(t, models.SizeBig, first[1].Size)
	assert.Equal(t, &models.ContactInfo{Name: "Jo", Email: "jo@x.com"}, first[1].ContactInfo)
}

// TestCustomerStore_ListEmpty 测试空表返回空切片而不是 nil
func TestCustomerStore_ListEmpty(t *testing.T) {
	store := NewCustomerStore(newTestDB(t), nil, 0)

	customers, err := store.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}

// TestCustomerStore_ListIgnoresCallerCancel 测试调用方取消不影响查询
func TestCustomerStore_ListIgnoresCallerCancel(t *testing.T) {
	db := newTestDB(t)
	seedDemo(t, db)
	store := NewCustomerStore(db, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}

func TestCustomerStore_Insert(t *testing.T) {
	db := newTestDB(t)
	store := NewCustomerStore(db, nil, time.Second)

	created, err := store.InsertCustomer(context.Background(), models.NewCustomer{
		Name: "Initech", Employees: intPtr(250), ContactName: strPtr("Bill"),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.SizeMedium, created.Size)
	assert.Nil(t, created.ContactInfo)

	var stored models.CustomerRecord
	require.NoError(t, db.First(&stored, created.ID).Error)
	assert.Equal(t, "Initech", stored.Name)
	assert.Nil(t, stored.ContactEmail)
}

// TestCustomerStore_InsertValidation 测试缺少字段时不写库
func TestCustomerStore_InsertValidation(t *testing.T) {
	db := newTestDB(t)
	store := NewCustomerStore(db, nil, time.Second)

	_, err := store.InsertCustomer(context.Background(), models.NewCustomer{Name: "NoEmployees"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var count int64
	require.NoError(t, db.Model(&models.CustomerRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

// TestCustomerStore_Unavailable 测试连接池关闭后返回 ErrStoreUnavailable
func TestCustomerStore_Unavailable(t *testing.T) {
	db := newTestDB(t)
	store := NewCustomerStore(db, nil, time.Second)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = store.ListCustomers(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = store.InsertCustomer(context.Background(), models.NewCustomer{Name: "x", Employees: intPtr(1)})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, store.Ping(context.Background()), ErrStoreUnavailable)
}

func TestCustomerStore_Ping(t *testing.T) {
	store := NewCustomerStore(newTestDB(t), nil, time.Second)
	assert.NoError(t, store.Ping(context.Background()))
}
