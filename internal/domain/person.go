package domain

import "time"

// Person 全局身份领域模型（对应 persons 表）
// 以规范化电话号码为全局唯一键；一个人在不同机构可见为不同的 Contact。
// 永不物理删除（被 Contact/User 引用时数据库层 RESTRICT）。
type Person struct {
	// 主键
	PersonID string `db:"person_id"` // UUID, PRIMARY KEY

	// 全局唯一身份键
	NormalizedPhone string `db:"normalized_phone"` // VARCHAR(15), NOT NULL, UNIQUE, ^\d+$, 10-15位

	// 状态
	IsActive  bool       `db:"is_active"`  // BOOLEAN, NOT NULL, DEFAULT TRUE
	BlockedAt *time.Time `db:"blocked_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
