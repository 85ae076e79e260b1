package migrations

import (
	"path/filepath"
	"runtime"
	"strings"

	"gorm.io/gorm"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
	"github.com/ChenBigdata421/jxt-customer-gateway/sdk/pkg/migration"
)

func init() {
	_, fileName, _, _ := runtime.Caller(0)
	migration.GetRegistry().RegisterVersion(versionOf(fileName), _1712300000000Customers)
}

func _1712300000000Customers(db *gorm.DB, version string) error {
	return db.AutoMigrate(&models.CustomerRecord{})
}

// versionOf 取文件名中的时间戳前缀作为版本号
func versionOf(fileName string) string {
	return strings.Split(filepath.Base(fileName), "_")[0]
}
