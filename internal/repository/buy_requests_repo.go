package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// BuyRequestFilters 购房申请列表过滤条件
type BuyRequestFilters struct {
	PropertyID     string // 按房产过滤（空 = 全部）
	Status         string // 按状态过滤（空 = 全部）
	IncludeDeleted bool
}

// BuyRequestView 购房申请 + 联系人姓名 + 主电话
type BuyRequestView struct {
	domain.PropertyBuyRequest
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	NormalizedPhone string `db:"normalized_phone"`
}

// BuyRequestPatch 购房申请可更新字段（指针语义同 ContactPatch）
type BuyRequestPatch struct {
	Status          *domain.BuyRequestStatus
	ResponseMessage *string
	CustomerID      *string
}

// BuyRequestsRepository 购房申请Repository接口（全部方法带 tenantID）
type BuyRequestsRepository interface {
	// GetBuyRequest 获取单条申请（默认排除软删除）
	GetBuyRequest(ctx context.Context, tenantID, requestID string) (*BuyRequestView, error)

	// ListBuyRequests 列表（过滤/分页），默认排除软删除
	ListBuyRequests(ctx context.Context, tenantID string, filters BuyRequestFilters, page, size int) ([]*BuyRequestView, int, error)

	// CreateBuyRequest 创建申请；property 不属于该租户时返回 domain.ErrInvalidArgument
	CreateBuyRequest(ctx context.Context, tenantID string, req *domain.PropertyBuyRequest) (string, error)

	// UpdateBuyRequest 状态流转/回复/关联客户
	UpdateBuyRequest(ctx context.Context, tenantID, requestID string, patch BuyRequestPatch) error

	// SoftDeleteBuyRequest 软删除
	SoftDeleteBuyRequest(ctx context.Context, tenantID, requestID string) error

	// CountActiveForAgency 机构活跃申请总数（套餐限额检查用）
	CountActiveForAgency(ctx context.Context, tenantID string) (int, error)
}
