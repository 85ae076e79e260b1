package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ChenBigdata421/jxt-customer-gateway/app/customer/models"
)

// DemoCustomers 演示数据：一个小公司和一个带联系人的大公司
func DemoCustomers() []models.CustomerRecord {
	contactName, contactEmail := "Jo", "jo@x.com"
	return []models.CustomerRecord{
		{Name: "Acme", Employees: 50},
		{Name: "Globex", Employees: 5000, ContactName: &contactName, ContactEmail: &contactEmail},
	}
}

// Seed customers 表为空时写入演示数据，返回写入条数
func Seed(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.CustomerRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计 customers 失败: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	records := DemoCustomers()
	if err := db.Create(&records).Error; err != nil {
		return 0, fmt.Errorf("写入演示数据失败: %w", err)
	}
	return len(records), nil
}
