package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// IdentityRepository 身份解析的事务化 upsert 原语。
//
// 三步嵌套 upsert 在一个数据库事务内按固定顺序执行：
// Person（全局）→ Contact（机构内）→ Customer（角色记录）。
// 事务是唯一的并发控制手段；竞争输掉唯一约束时返回
// domain.ErrUniquenessConflict，由 Service 层做一次有界重试。
type IdentityRepository interface {
	// ResolveCustomer 三步 upsert：返回角色记录及其 Contact/Person
	ResolveCustomer(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch, customerPatch domain.CustomerPatch, defaultServiceType domain.ServiceType) (*domain.Customer, error)

	// ResolveContact 两步 upsert：只保证 Person+Contact 存在（业主/购房申请路径）
	ResolveContact(ctx context.Context, tenantID, normalizedPhone string, contactPatch domain.ContactPatch) (*domain.Contact, *domain.Person, error)
}
