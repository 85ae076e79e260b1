package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(&config.Database{
		Driver:          "sqlite3",
		Source:          "file:database_open?mode=memory&cache=shared",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxIdleTime: time.Minute,
		ConnectTimeout:  time.Second,
	}, nil)
	require.NoError(t, err)

	assert.NoError(t, Ping(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, Close(db))
	assert.Error(t, Ping(context.Background(), db))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.Database{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

// TestOpen_UnreachableIsNotFatal 测试启动时数据库不可达仍返回连接池
func TestOpen_UnreachableIsNotFatal(t *testing.T) {
	db, err := Open(&config.Database{
		Driver:         "postgres",
		Host:           "127.0.0.1",
		Port:           1,
		Name:           "customersdb",
		User:           "postgres",
		Password:       "postgres",
		ConnectTimeout: time.Second,
	}, nil)
	require.NoError(t, err)
	defer Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, Ping(ctx, db))
}

func TestOpen_Replicas(t *testing.T) {
	db, err := Open(&config.Database{
		Driver:   "sqlite3",
		Source:   "file:database_primary?mode=memory&cache=shared",
		Replicas: []string{"file:database_replica?mode=memory&cache=shared"},
	}, nil)
	require.NoError(t, err)
	defer Close(db)

	assert.NoError(t, Ping(context.Background(), db))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
