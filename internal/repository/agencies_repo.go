package repository

import (
	"context"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
)

// AgenciesRepository 机构（租户）Repository接口
type AgenciesRepository interface {
	// GetAgency 根据agency_id获取
	GetAgency(ctx context.Context, agencyID string) (*domain.Agency, error)

	// GetAgencyBySlug 根据slug获取（公共平台路由）
	GetAgencyBySlug(ctx context.Context, slug string) (*domain.Agency, error)

	// GetAgencyByDomain 根据自定义域名获取（域名路由）
	GetAgencyByDomain(ctx context.Context, customDomain string) (*domain.Agency, error)

	// CreateAgency 创建机构
	CreateAgency(ctx context.Context, agency *domain.Agency) (string, error)

	// GetPlanForAgency 机构当前套餐；无套餐返回 domain.ErrNotFound
	GetPlanForAgency(ctx context.Context, agencyID string) (*domain.AgencyPlan, error)

	// SetBlocked 封禁/解封机构
	SetBlocked(ctx context.Context, agencyID string, blocked bool) error
}
