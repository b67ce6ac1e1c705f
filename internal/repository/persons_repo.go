package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// PersonsRepository 全局身份Repository接口
//
// 注意：Person 是系统里唯一跨租户的实体（按 normalized_phone 全局唯一），
// 所以这里的方法刻意不带 tenantID 参数；
// 所有租户私有数据（Contact及角色记录）的Repository都必须带 tenantID。
type PersonsRepository interface {
	// GetPerson 根据person_id获取
	GetPerson(ctx context.Context, personID string) (*domain.Person, error)

	// FindByPhone 根据规范化电话查找；不存在返回 domain.ErrNotFound
	FindByPhone(ctx context.Context, normalizedPhone string) (*domain.Person, error)

	// EnsurePerson 按规范化电话 find-or-create（幂等）
	// 采用 INSERT .. ON CONFLICT DO NOTHING + 回查，不加锁
	EnsurePerson(ctx context.Context, normalizedPhone string) (*domain.Person, error)

	// UpdatePhone 修改主电话（重新规范化后的值）
	// 与其他 Person 撞号时返回 domain.ErrUniquenessConflict
	UpdatePhone(ctx context.Context, personID, normalizedPhone string) error

	// SetBlocked 封禁/解封
	SetBlocked(ctx context.Context, personID string, blocked bool) error
}
