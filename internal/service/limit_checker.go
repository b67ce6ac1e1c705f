package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// LimitChecker 套餐限额检查。
// 限额的权威来源是机构挂的 AgencyPlan；字段为 NULL 表示不限。
// 机构没有套餐时业主数量用 DefaultMaxPropertyOwners 兜底，其余不限。
type LimitChecker struct {
	agenciesRepo   repository.AgenciesRepository
	ownersRepo     repository.PropertyOwnersRepository
	buyRequestRepo repository.BuyRequestsRepository
	propertiesRepo repository.PropertiesRepository
	usersRepo      repository.UsersRepository
}

// NewLimitChecker 创建 LimitChecker
func NewLimitChecker(repos *repository.Repositories) *LimitChecker {
	return &LimitChecker{
		agenciesRepo:   repos.Agencies,
		ownersRepo:     repos.Owners,
		buyRequestRepo: repos.BuyRequests,
		propertiesRepo: repos.Properties,
		usersRepo:      repos.Users,
	}
}

// plan 机构套餐；没有套餐时返回 nil（不算错误）
func (c *LimitChecker) plan(ctx context.Context, tenantID string) (*domain.AgencyPlan, error) {
	plan, err := c.agenciesRepo.GetPlanForAgency(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}

func exceeded(what string, current, limit int) error {
	return fmt.Errorf("%s quota reached (%d of %d): %w", what, current, limit, domain.ErrLimitExceeded)
}

// EnsureOwnerQuota 某房产还能不能再挂业主
func (c *LimitChecker) EnsureOwnerQuota(ctx context.Context, tenantID, propertyID string) error {
	plan, err := c.plan(ctx, tenantID)
	if err != nil {
		return err
	}

	limit := domain.DefaultMaxPropertyOwners
	if plan != nil {
		if plan.MaxPropertyOwners == nil {
			return nil
		}
		limit = *plan.MaxPropertyOwners
	}

	current, err := c.ownersRepo.CountActiveOwners(ctx, tenantID, propertyID)
	if err != nil {
		return err
	}
	if current >= limit {
		return exceeded("property owners", current, limit)
	}
	return nil
}

// EnsureBuyRequestQuota 机构还能不能再收购房申请
func (c *LimitChecker) EnsureBuyRequestQuota(ctx context.Context, tenantID string) error {
	plan, err := c.plan(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan == nil || plan.MaxBuyRequests == nil {
		return nil
	}

	current, err := c.buyRequestRepo.CountActiveForAgency(ctx, tenantID)
	if err != nil {
		return err
	}
	if current >= *plan.MaxBuyRequests {
		return exceeded("buy requests", current, *plan.MaxBuyRequests)
	}
	return nil
}

// EnsurePropertyQuota 机构还能不能再建房产
func (c *LimitChecker) EnsurePropertyQuota(ctx context.Context, tenantID string) error {
	plan, err := c.plan(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan == nil || plan.MaxProperties == nil {
		return nil
	}

	current, err := c.propertiesRepo.CountActiveProperties(ctx, tenantID)
	if err != nil {
		return err
	}
	if current >= *plan.MaxProperties {
		return exceeded("properties", current, *plan.MaxProperties)
	}
	return nil
}

// EnsurePhotoQuota 某房产还能不能再加照片
func (c *LimitChecker) EnsurePhotoQuota(ctx context.Context, tenantID, propertyID string) error {
	plan, err := c.plan(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan == nil || plan.MaxPhotos == nil {
		return nil
	}

	current, err := c.propertiesRepo.CountPhotos(ctx, tenantID, propertyID)
	if err != nil {
		return err
	}
	if current >= *plan.MaxPhotos {
		return exceeded("property photos", current, *plan.MaxPhotos)
	}
	return nil
}

// EnsureEmployeeQuota 机构还能不能再加员工
func (c *LimitChecker) EnsureEmployeeQuota(ctx context.Context, tenantID string) error {
	plan, err := c.plan(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan == nil || plan.MaxEmployees == nil {
		return nil
	}

	current, err := c.usersRepo.CountActiveEmployees(ctx, tenantID)
	if err != nil {
		return err
	}
	if current >= *plan.MaxEmployees {
		return exceeded("employees", current, *plan.MaxEmployees)
	}
	return nil
}
