package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// ContactFilters 联系人列表过滤条件
type ContactFilters struct {
	Search         string // 按姓名/邮箱/电话模糊搜索
	Phone          string // 精确电话（已规范化，JOIN persons）
	IncludeDeleted bool   // 审计场景：包含软删除记录
}

// ContactView 联系人 + 主电话（JOIN persons 的读取视图）
type ContactView struct {
	domain.Contact
	NormalizedPhone string `db:"normalized_phone"`
}

// ContactsRepository 联系人Repository接口
//
// 租户隔离约定：每个方法的第一个参数都是 tenantID（agency_id），
// SQL 一律带 agency_id 过滤；不存在无租户参数的查询路径。
type ContactsRepository interface {
	// GetContact 获取单个联系人（默认排除软删除）
	GetContact(ctx context.Context, tenantID, contactID string) (*ContactView, error)

	// GetContactAny 审计用：包含软删除记录
	GetContactAny(ctx context.Context, tenantID, contactID string) (*ContactView, error)

	// FindByPerson 按 (agency_id, person_id) 查找，包含软删除
	//（身份解析需要复活软删除的卡片）；不存在返回 domain.ErrNotFound
	FindByPerson(ctx context.Context, tenantID, personID string) (*domain.Contact, error)

	// ListContacts 列表（搜索/电话过滤/分页），默认排除软删除
	ListContacts(ctx context.Context, tenantID string, filters ContactFilters, page, size int) ([]*ContactView, int, error)

	// UpdateContact 按补丁更新可编辑字段（extra_phones 为替换语义，合并在上层完成）
	UpdateContact(ctx context.Context, tenantID, contactID string, patch domain.ContactPatch) error

	// UpdateContactWithPhone 同一事务内改写全局主电话并应用字段补丁；
	// 补丁可以为空（纯改电话），此时仅刷新联系人的 updated_at
	UpdateContactWithPhone(ctx context.Context, tenantID, contactID, personID, normalizedPhone string, patch domain.ContactPatch) error

	// SoftDeleteContact 软删除；仍被活跃角色记录引用时返回 domain.ErrInvalidArgument
	SoftDeleteContact(ctx context.Context, tenantID, contactID string) error

	// RestoreContact 撤销软删除
	RestoreContact(ctx context.Context, tenantID, contactID string) error

	// CountActiveRoleRefs 该联系人被活跃 Customer/Owner/BuyRequest 引用的数量
	CountActiveRoleRefs(ctx context.Context, tenantID, contactID string) (int, error)
}
