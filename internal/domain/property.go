package domain

import "time"

// Property 房产对象领域模型（对应 properties 表）
// 这里只建模身份解析子系统需要的最小字段：
// 业主（PropertyOwner）、购房申请（PropertyBuyRequest）和照片挂在它上面。
type Property struct {
	// 主键
	PropertyID string `db:"property_id"` // UUID, PRIMARY KEY

	// 租户
	AgencyID string `db:"agency_id"` // UUID, NOT NULL

	// 基本信息
	Title string `db:"title"` // VARCHAR(255), NOT NULL
	Price int64  `db:"price"` // BIGINT, NOT NULL, DEFAULT 0（最小货币单位）

	// 状态
	Status string `db:"status"` // VARCHAR(50), NOT NULL, DEFAULT 'active'

	// 软删除
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PropertyPhoto 房产照片领域模型（对应 property_photos 表）
// 由后台照片 worker 异步写入；同一 (property_id, file_url) 不做去重保证。
type PropertyPhoto struct {
	// 主键
	PhotoID string `db:"photo_id"` // UUID, PRIMARY KEY

	PropertyID string `db:"property_id"` // UUID, NOT NULL
	AgencyID   string `db:"agency_id"`   // UUID, NOT NULL

	// 来源与存储
	FileURL     string `db:"file_url"`     // TEXT, NOT NULL（下载来源）
	ContentType string `db:"content_type"` // VARCHAR(100), nullable
	SizeBytes   int64  `db:"size_bytes"`   // BIGINT, NOT NULL, DEFAULT 0

	Position int `db:"position"` // INTEGER, NOT NULL, DEFAULT 0

	CreatedAt time.Time `db:"created_at"`
}
