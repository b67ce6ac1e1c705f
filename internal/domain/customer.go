package domain

import "time"

// ServiceType 客户请求的服务类型（封闭枚举）
type ServiceType string

const (
	ServiceTypeBuy     ServiceType = "buy"      // 想买
	ServiceTypeSell    ServiceType = "sell"     // 想卖
	ServiceTypeRentIn  ServiceType = "rent_in"  // 想租入
	ServiceTypeRentOut ServiceType = "rent_out" // 想租出
	ServiceTypeOther   ServiceType = "other"    // 其它服务
)

// Valid 枚举成员检查
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeBuy, ServiceTypeSell, ServiceTypeRentIn, ServiceTypeRentOut, ServiceTypeOther:
		return true
	}
	return false
}

// Customer 客户角色领域模型（对应 customers 表）
// 机构内某 Contact 的"客户"角色：UNIQUE(agency_id, contact_id)。
type Customer struct {
	// 主键
	CustomerID string `db:"customer_id"` // UUID, PRIMARY KEY

	// 租户和联系人
	AgencyID  string `db:"agency_id"`  // UUID, NOT NULL
	ContactID string `db:"contact_id"` // UUID, NOT NULL

	// 可选：关联的注册用户（认证提交的线索）
	UserID string `db:"user_id"` // UUID, nullable

	// 服务类型
	ServiceType ServiceType `db:"service_type"` // VARCHAR(20), NOT NULL

	// 备注
	Notes string `db:"notes"` // TEXT, nullable

	// 软删除（NULL = 活跃）
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// 关联对象（Resolve 返回时填充，非表字段）
	Contact *Contact `db:"-"`
	Person  *Person  `db:"-"`
}

// IsActive 未软删除即为活跃
func (c *Customer) IsActive() bool {
	return c.DeletedAt == nil
}
