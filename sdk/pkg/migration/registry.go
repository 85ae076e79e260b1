package migration

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationFunc 在事务内执行，返回错误时整个版本回滚
type MigrationFunc func(tx *gorm.DB, version string) error

// Migration sys_migration 表的一行，每个已应用版本一条
type Migration struct {
	Version   string    `gorm:"primaryKey;size:64"`
	ApplyTime time.Time `gorm:"autoCreateTime"`
}

func (Migration) TableName() string {
	return "sys_migration"
}

// Registry 版本化迁移注册表
type Registry struct {
	mu       sync.RWMutex
	versions map[string]MigrationFunc
}

var (
	globalRegistry *Registry
	once           sync.Once
)

func NewRegistry() *Registry {
	return &Registry{versions: make(map[string]MigrationFunc)}
}

// GetRegistry 全局注册表，迁移文件在 init() 中注册
func GetRegistry() *Registry {
	once.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// RegisterVersion 注册迁移版本，版本号按字典序执行
func (r *Registry) RegisterVersion(version string, fn MigrationFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[version] = fn
}

// Versions 已注册版本（排序后）
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]string, 0, len(r.versions))
	for v := range r.versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Migrate 执行尚未应用的版本，返回本次应用的版本
func (r *Registry) Migrate(db *gorm.DB, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return nil, fmt.Errorf("创建 sys_migration 表失败: %w", err)
	}

	var records []Migration
	if err := db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("读取已应用版本失败: %w", err)
	}
	applied := make(map[string]bool, len(records))
	for _, record := range records {
		applied[record.Version] = true
	}

	var done []string
	for _, version := range r.Versions() {
		if applied[version] {
			log.Debug("Migration already applied", zap.String("version", version))
			continue
		}

		r.mu.RLock()
		fn := r.versions[version]
		r.mu.RUnlock()

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := fn(tx, version); err != nil {
				return err
			}
			return tx.Create(&Migration{Version: version}).Error
		})
		if err != nil {
			return done, fmt.Errorf("版本 %s 迁移失败: %w", version, err)
		}
		done = append(done, version)
		log.Info("Migration applied", zap.String("version", version))
	}
	return done, nil
}
