package domain

import "time"

// Agency 机构（租户）领域模型（对应 agencies 表）
// 所有 Contact/Customer/PropertyOwner/PropertyBuyRequest 数据按 agency_id 隔离。
type Agency struct {
	// 主键
	AgencyID string `db:"agency_id"` // UUID, PRIMARY KEY

	// 基本信息
	Title        string `db:"title"`         // VARCHAR(255), NOT NULL
	Slug         string `db:"slug"`          // VARCHAR(255), NOT NULL, UNIQUE
	CustomDomain string `db:"custom_domain"` // VARCHAR(255), UNIQUE, nullable（域名路由）

	// 套餐
	AgencyPlanID string `db:"agency_plan_id"` // UUID, nullable

	// 封禁/软删除
	IsBlocked bool       `db:"is_blocked"` // BOOLEAN, NOT NULL, DEFAULT FALSE
	BlockedAt *time.Time `db:"blocked_at"` // TIMESTAMPTZ, nullable
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	// 创建者
	CreatedByID string `db:"created_by_id"` // UUID, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsActive 未封禁且未删除
func (a *Agency) IsActive() bool {
	return !a.IsBlocked && a.DeletedAt == nil
}

// AgencyPlan 机构套餐领域模型（对应 agency_plans 表）
// 限额字段为 NULL 时表示不限制。套餐限额是权威来源（不用硬编码常量）。
type AgencyPlan struct {
	// 主键
	PlanID string `db:"plan_id"` // UUID, PRIMARY KEY

	Title string `db:"title"` // VARCHAR(255), NOT NULL, UNIQUE

	// 限额（NULL = 不限）
	MaxEmployees      *int `db:"max_employees"`       // INTEGER, nullable
	MaxProperties     *int `db:"max_properties"`      // INTEGER, nullable
	MaxPhotos         *int `db:"max_photos"`          // INTEGER, nullable
	MaxBuyRequests    *int `db:"max_buy_requests"`    // INTEGER, nullable
	MaxPropertyOwners *int `db:"max_property_owners"` // INTEGER, nullable

	IsDefault bool       `db:"is_default"` // BOOLEAN, NOT NULL, DEFAULT FALSE
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DefaultMaxPropertyOwners 机构没有套餐时的业主数量兜底上限
const DefaultMaxPropertyOwners = 5
