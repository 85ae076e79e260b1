// Package database 按配置打开 gorm 连接池：驱动选择、连接池参数、只读副本和 zap SQL 日志。
package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/config"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/logger"
)

const defaultPingTimeout = 2 * time.Second

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: true}), nil
	case "sqlite3", "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open 打开连接池
//
// 启动时数据库不可达不视为致命错误：连接池按需重拨，健康检查报告 DOWN。
func Open(cfg *config.Database, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	dial, err := dialector(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		DisableAutomaticPing: true,
	}
	if config.LoggerConfig.EnabledDB {
		gormCfg.Logger = logger.NewGormLogger(log, config.LoggerConfig.GormLoggerLevel)
	} else {
		gormCfg.Logger = logger.NewGormLogger(log, 1)
	}

	db, err := gorm.Open(dial, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open gorm %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve %s sql db handle: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifeTime)
	}

	if len(cfg.Replicas) > 0 {
		if err := useReplicas(db, cfg); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		log.Info("Database read replicas registered", zap.Int("replicas", len(cfg.Replicas)))
	}

	pingTimeout := cfg.ConnectTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Warn("Database not reachable at startup",
			zap.String("driver", cfg.Driver),
			zap.String("host", cfg.Host),
			zap.Error(err))
	} else {
		log.Info("Database connected",
			zap.String("driver", cfg.Driver),
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Name))
	}
	return db, nil
}

// useReplicas 读请求走副本，写请求走主库
func useReplicas(db *gorm.DB, cfg *config.Database) error {
	replicas := make([]gorm.Dialector, 0, len(cfg.Replicas))
	for _, dsn := range cfg.Replicas {
		dial, err := dialector(cfg.Driver, dsn)
		if err != nil {
			return err
		}
		replicas = append(replicas, dial)
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	})
	if cfg.MaxOpenConns > 0 {
		resolver = resolver.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		resolver = resolver.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if err := db.Use(resolver); err != nil {
		return fmt.Errorf("register read replicas: %w", err)
	}
	return nil
}

// Ping 校验连通性，无副作用
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
