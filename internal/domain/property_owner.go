package domain

import "time"

// OwnerRole 业主在房产上的角色（封闭枚举）
type OwnerRole string

const (
	OwnerRolePrimary  OwnerRole = "primary"  // 主要业主
	OwnerRolePartner  OwnerRole = "partner"  // 共有人
	OwnerRoleRelative OwnerRole = "relative" // 亲属
	OwnerRoleOther    OwnerRole = "other"    // 其它
)

// Valid 枚举成员检查
func (r OwnerRole) Valid() bool {
	switch r {
	case OwnerRolePrimary, OwnerRolePartner, OwnerRoleRelative, OwnerRoleOther:
		return true
	}
	return false
}

// PropertyOwner 业主角色领域模型（对应 property_owners 表）
// 业主的姓名/邮箱在 Contact、电话在 Person；这里只有角色与备注。
// 活跃业主数量上限由机构套餐 max_property_owners 决定。
type PropertyOwner struct {
	// 主键
	OwnerID string `db:"owner_id"` // UUID, PRIMARY KEY

	// 归属
	PropertyID string `db:"property_id"` // UUID, NOT NULL
	AgencyID   string `db:"agency_id"`   // UUID, NOT NULL（冗余自 property，快速租户过滤）
	ContactID  string `db:"contact_id"`  // UUID, NOT NULL

	// 可选：录入该业主的员工
	UserID string `db:"user_id"` // UUID, nullable

	// 角色
	Role OwnerRole `db:"role"` // VARCHAR(20), NOT NULL, DEFAULT 'primary'

	// 备注
	Notes string `db:"notes"` // TEXT, nullable

	// 软删除（NULL = 活跃）
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// 关联对象（查询时按需填充，非表字段）
	Contact *Contact `db:"-"`
}
