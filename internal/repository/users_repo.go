package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// UsersRepository 员工/注册用户Repository接口
// 用户账号是全局的（跨机构），机构成员关系走 user_agencies。
type UsersRepository interface {
	// GetUser 根据user_id获取
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail 根据email获取（登录用，不含软删除）
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser 创建用户，返回user_id；email/person_id撞唯一约束返回 ErrUniquenessConflict
	CreateUser(ctx context.Context, user *domain.User) (string, error)

	// AddUserToAgency 建立用户-机构成员关系（幂等）
	AddUserToAgency(ctx context.Context, userID, agencyID string, isDefault bool) error

	// GetDefaultAgencyID 用户默认机构；无成员关系返回 domain.ErrNotFound
	GetDefaultAgencyID(ctx context.Context, userID string) (string, error)

	// IsMemberOfAgency 用户是否属于某机构
	IsMemberOfAgency(ctx context.Context, userID, agencyID string) (bool, error)

	// CountActiveEmployees 机构内活跃员工数量（套餐限额检查用）
	CountActiveEmployees(ctx context.Context, tenantID string) (int, error)

	// UpdateLastSignIn 记录最近登录时间
	UpdateLastSignIn(ctx context.Context, userID string) error
}
