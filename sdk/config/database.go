package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Database 数据库配置，读写使用同一连接池，Replicas 非空时读请求走从库
type Database struct {
	Driver          string        `mapstructure:"driver"`   // postgres, mysql, sqlite3
	Source          string        `mapstructure:"source"`   // 完整DSN，非空时忽略 Host/Port 等字段
	Host            string        `mapstructure:"host"`     //
	Port            int           `mapstructure:"port"`     //
	Name            string        `mapstructure:"name"`     //
	User            string        `mapstructure:"user"`     //
	Password        string        `mapstructure:"password"` //
	SSLMode         string        `mapstructure:"sslMode"`  // postgres 专用
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
	ConnMaxLifeTime time.Duration `mapstructure:"connMaxLifeTime"`
	ConnectTimeout  time.Duration `mapstructure:"connectTimeout"` // 建连超时
	QueryTimeout    time.Duration `mapstructure:"queryTimeout"`   // 单次查询超时
	Replicas        []string      `mapstructure:"replicas"`       // 只读从库DSN
	AutoMigrate     bool          `mapstructure:"autoMigrate"`    // 启动时执行迁移
}

var DatabaseConfig = new(Database)

// DSN 根据驱动拼装连接串
func (d *Database) DSN() (string, error) {
	if strings.TrimSpace(d.Source) != "" {
		return d.Source, nil
	}
	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	switch d.Driver {
	case "postgres", "":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   "/" + d.Name,
		}
		q := u.Query()
		q.Set("sslmode", sslMode)
		q.Set("connect_timeout", fmt.Sprintf("%d", ceilSeconds(timeout)))
		u.RawQuery = q.Encode()
		return u.String(), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s",
			d.User, d.Password, d.Host, d.Port, d.Name, timeout), nil
	case "sqlite3", "sqlite":
		if d.Name == "" {
			return "file::memory:?cache=shared", nil
		}
		return d.Name, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", d.Driver)
	}
}

// ceilSeconds libpq 的 connect_timeout 以秒为单位，至少1秒
func ceilSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
