package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/eventbus"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.CustomerRecord{}))
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// seedDemo 写入 Acme 和 Globex 两条演示数据
func seedDemo(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.CustomerRecord{Name: "Acme", Employees: 50}).Error)
	require.NoError(t, db.Create(&models.CustomerRecord{
		Name: "Globex", Employees: 5000, ContactName: strPtr("Jo"), ContactEmail: strPtr("jo@x.com"),
	}).Error)
}

type publishedMessage struct {
	topic   string
	key     string
	payload []byte
}

// fakeBus 记录发布的消息
type fakeBus struct {
	mu        sync.Mutex
	ready     bool
	err       error
	published []publishedMessage
}

func (b *fakeBus) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *fakeBus) Publish(_ context.Context, topic, key string, payload []byte) (eventbus.PublishResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return eventbus.PublishResult{Skipped: true}, nil
	}
	if b.err != nil {
		return eventbus.PublishResult{}, b.err
	}
	b.published = append(b.published, publishedMessage{topic: topic, key: key, payload: payload})
	return eventbus.PublishResult{Offset: int64(len(b.published) - 1)}, nil
}

func (b *fakeBus) messages(topic string) []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedMessage
	for _, m := range b.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}
