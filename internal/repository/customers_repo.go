package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// CustomerFilters 客户列表过滤条件
type CustomerFilters struct {
	ServiceType    string // 按服务类型过滤（空 = 全部）
	Search         string // 按联系人姓名/电话模糊搜索
	IncludeDeleted bool
}

// CustomerView 客户 + 联系人姓名 + 主电话（JOIN contacts/persons 的读取视图）
type CustomerView struct {
	domain.Customer
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	MiddleName      string `db:"middle_name"`
	NormalizedPhone string `db:"normalized_phone"`
}

// CustomersRepository 客户Repository接口（全部方法带 tenantID）
type CustomersRepository interface {
	// GetCustomer 获取单个客户（默认排除软删除）
	GetCustomer(ctx context.Context, tenantID, customerID string) (*CustomerView, error)

	// FindByContact 按 (agency_id, contact_id) 查找，包含软删除
	//（身份解析需要复活软删除的客户角色）；不存在返回 domain.ErrNotFound
	FindByContact(ctx context.Context, tenantID, contactID string) (*domain.Customer, error)

	// ListCustomers 列表（过滤/分页），默认排除软删除
	ListCustomers(ctx context.Context, tenantID string, filters CustomerFilters, page, size int) ([]*CustomerView, int, error)

	// UpdateCustomer 按补丁更新
	UpdateCustomer(ctx context.Context, tenantID, customerID string, patch domain.CustomerPatch) error

	// SoftDeleteCustomer 软删除
	SoftDeleteCustomer(ctx context.Context, tenantID, customerID string) error
}
