package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// OwnerView 业主 + 联系人姓名 + 主电话
type OwnerView struct {
	domain.PropertyOwner
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	MiddleName      string `db:"middle_name"`
	NormalizedPhone string `db:"normalized_phone"`
}

// PropertyOwnersRepository 业主Repository接口（全部方法带 tenantID）
type PropertyOwnersRepository interface {
	// GetOwner 获取单个业主记录（默认排除软删除）
	GetOwner(ctx context.Context, tenantID, ownerID string) (*OwnerView, error)

	// ListOwners 某房产的业主（默认只返回活跃记录）
	ListOwners(ctx context.Context, tenantID, propertyID string, includeDeleted bool) ([]*OwnerView, error)

	// CountActiveOwners 某房产的活跃业主数量（创建前限额检查用）
	CountActiveOwners(ctx context.Context, tenantID, propertyID string) (int, error)

	// CreateOwner 创建业主记录
	CreateOwner(ctx context.Context, tenantID string, owner *domain.PropertyOwner) (string, error)

	// SoftDeleteOwner 软删除
	SoftDeleteOwner(ctx context.Context, tenantID, ownerID string) error
}
