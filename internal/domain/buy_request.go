package domain

import "time"

// BuyRequestStatus 购房申请状态（封闭枚举）
// 注意：没有强制的状态机，员工可以把状态改为任意枚举值
// （与来源系统行为一致；只校验枚举成员）。
type BuyRequestStatus string

const (
	BuyRequestPending   BuyRequestStatus = "pending"   // 新建，等待处理
	BuyRequestViewed    BuyRequestStatus = "viewed"    // 已查看
	BuyRequestProcessed BuyRequestStatus = "processed" // 已处理/处理中
	BuyRequestRejected  BuyRequestStatus = "rejected"  // 已拒绝
)

// Valid 枚举成员检查
func (s BuyRequestStatus) Valid() bool {
	switch s {
	case BuyRequestPending, BuyRequestViewed, BuyRequestProcessed, BuyRequestRejected:
		return true
	}
	return false
}

// MaxBuyRequestTextLen comment/response_message 最大长度
const MaxBuyRequestTextLen = 1000

// PropertyBuyRequest 购房申请领域模型（对应 property_buy_requests 表）
// 来自公共平台（游客）或后台（认证用户）的购房线索。
// 不变量：agency_id 必须等于所引用 property 的 agency_id。
type PropertyBuyRequest struct {
	// 主键
	RequestID string `db:"request_id"` // UUID, PRIMARY KEY

	// 归属
	PropertyID string `db:"property_id"` // UUID, NOT NULL
	AgencyID   string `db:"agency_id"`   // UUID, NOT NULL（= property.agency_id）
	ContactID  string `db:"contact_id"`  // UUID, NOT NULL

	// 可选关联
	CustomerID string `db:"customer_id"` // UUID, nullable（该联系人在机构内的客户角色）
	UserID     string `db:"user_id"`     // UUID, nullable（认证提交者）

	// 状态与沟通
	Status          BuyRequestStatus `db:"status"`           // VARCHAR(20), NOT NULL, DEFAULT 'pending'
	Comment         string           `db:"comment"`          // TEXT, ≤1000
	ResponseMessage string           `db:"response_message"` // TEXT, ≤1000

	// 软删除（NULL = 活跃）
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// 关联对象（查询时按需填充，非表字段）
	Contact *Contact `db:"-"`
}
