package domain

import "time"

// UserRole 员工角色（封闭枚举）
type UserRole string

const (
	UserRoleAdmin UserRole = "admin" // 平台管理员
	UserRoleOwner UserRole = "owner" // 机构所有者
	UserRoleAgent UserRole = "agent" // 经纪人
)

// Valid 枚举成员检查
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleOwner, UserRoleAgent:
		return true
	}
	return false
}

// User 员工/注册用户领域模型（对应 users 表）
// 与 Person 一对一：用户的主电话就是其全局身份。
type User struct {
	// 主键
	UserID string `db:"user_id"` // UUID, PRIMARY KEY

	// 全局身份（1:1）
	PersonID string `db:"person_id"` // UUID, NOT NULL, UNIQUE

	// 账号
	Email          string `db:"email"`           // VARCHAR(255), NOT NULL, UNIQUE
	PasswordDigest string `db:"password_digest"` // VARCHAR(255), NOT NULL（bcrypt）

	// 个人信息
	FirstName  string `db:"first_name"`  // VARCHAR(100), NOT NULL
	LastName   string `db:"last_name"`   // VARCHAR(100), nullable
	MiddleName string `db:"middle_name"` // VARCHAR(100), nullable

	// 角色
	Role UserRole `db:"role"` // VARCHAR(20), NOT NULL, DEFAULT 'agent'

	// 状态
	LastSignInAt *time.Time `db:"last_sign_in_at"` // TIMESTAMPTZ, nullable
	DeletedAt    *time.Time `db:"deleted_at"`      // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsActive 未软删除即为活跃
func (u *User) IsActive() bool {
	return u.DeletedAt == nil
}

// UserAgency 用户-机构成员关系（对应 user_agencies 表）
// UNIQUE(user_id, agency_id)；is_default 标记用户的默认机构。
type UserAgency struct {
	UserID    string    `db:"user_id"`    // UUID, NOT NULL
	AgencyID  string    `db:"agency_id"`  // UUID, NOT NULL
	IsDefault bool      `db:"is_default"` // BOOLEAN, NOT NULL, DEFAULT FALSE
	CreatedAt time.Time `db:"created_at"`
}
