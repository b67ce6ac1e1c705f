package domain

import "time"

// MaxExtraPhones 联系人附加电话数量上限
const MaxExtraPhones = 10

// ContactNamePlaceholder 姓名缺省占位符（来源未提供姓名时）
const ContactNamePlaceholder = "—"

// Contact 机构内联系人卡片领域模型（对应 contacts 表）
// 同一 Person 在每个机构最多一条：UNIQUE(agency_id, person_id)。
// 姓名/邮箱/附加电话/备注是机构私有数据；主电话在 Person。
type Contact struct {
	// 主键
	ContactID string `db:"contact_id"` // UUID, PRIMARY KEY

	// 租户和全局身份
	AgencyID string `db:"agency_id"` // UUID, NOT NULL
	PersonID string `db:"person_id"` // UUID, NOT NULL

	// 姓名（first_name 必填，缺省 "—"）
	FirstName  string `db:"first_name"`  // VARCHAR(100), NOT NULL
	LastName   string `db:"last_name"`   // VARCHAR(100), nullable
	MiddleName string `db:"middle_name"` // VARCHAR(100), nullable

	// 联系方式
	Email       string   `db:"email"`        // VARCHAR(255), nullable
	ExtraPhones []string `db:"extra_phones"` // TEXT[], 规范化数字串, 最多10个

	// 备注
	Notes string `db:"notes"` // TEXT, nullable

	// 软删除（统一 deleted_at 约定：NULL = 活跃）
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsDeleted 是否已软删除
func (c *Contact) IsDeleted() bool {
	return c.DeletedAt != nil
}

// FullName 按"姓 名 父名"顺序拼接非空部分
func (c *Contact) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.LastName, c.FirstName, c.MiddleName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
