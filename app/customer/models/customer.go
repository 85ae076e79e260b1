package models

// CustomerRecord customers 表
type CustomerRecord struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"type:text;not null"`
	Employees    int     `gorm:"not null"`
	ContactName  *string `gorm:"column:contact_name;type:text"`
	ContactEmail *string `gorm:"column:contact_email;type:text"`
}

func (CustomerRecord) TableName() string {
	return "customers"
}

// ContactInfo 联系人
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Customer 对外的客户视图
type Customer struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Employees   int          `json:"employees"`
	Size        Size         `json:"size"`
	ContactInfo *ContactInfo `json:"contactInfo,omitempty"`
}

// View 转换为对外视图；联系人姓名和邮箱都存在时才带 contactInfo
func (r CustomerRecord) View() Customer {
	c := Customer{
		ID:        r.ID,
		Name:      r.Name,
		Employees: r.Employees,
		Size:      Classify(r.Employees),
	}
	if r.ContactName != nil && *r.ContactName != "" && r.ContactEmail != nil && *r.ContactEmail != "" {
		c.ContactInfo = &ContactInfo{Name: *r.ContactName, Email: *r.ContactEmail}
	}
	return c
}

// NewCustomer 新增客户的输入
type NewCustomer struct {
	Name         string  `json:"name" validate:"required"`
	Employees    *int    `json:"employees" validate:"required,min=0"`
	ContactName  *string `json:"contactName"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
}

// Record 转换为表记录，空字符串的联系人字段存为 NULL
func (n NewCustomer) Record() CustomerRecord {
	r := CustomerRecord{Name: n.Name}
	if n.Employees != nil {
		r.Employees = *n.Employees
	}
	r.ContactName = nullIfEmpty(n.ContactName)
	r.ContactEmail = nullIfEmpty(n.ContactEmail)
	return r
}

func nullIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
