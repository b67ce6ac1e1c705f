package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// PropertyOwnerService 业主服务接口。
// 添加业主先走 IdentityService.ResolveContact（电话即身份），
// 再做套餐限额检查，最后落角色记录。
type PropertyOwnerService interface {
	// AddOwner 按电话把业主挂到房产上
	AddOwner(ctx context.Context, req AddOwnerRequest) (*repository.OwnerView, error)

	// ListOwners 某房产的业主
	ListOwners(ctx context.Context, tenantID, propertyID string, includeDeleted bool) ([]*repository.OwnerView, error)

	// GetOwner 获取单条业主记录
	GetOwner(ctx context.Context, tenantID, ownerID string) (*repository.OwnerView, error)

	// DeleteOwner 软删除业主记录
	DeleteOwner(ctx context.Context, tenantID, ownerID string) error
}

type propertyOwnerService struct {
	identity       IdentityService
	ownersRepo     repository.PropertyOwnersRepository
	propertiesRepo repository.PropertiesRepository
	limits         *LimitChecker
	logger         *zap.Logger
}

// NewPropertyOwnerService 创建 PropertyOwnerService 实例
func NewPropertyOwnerService(identity IdentityService, ownersRepo repository.PropertyOwnersRepository, propertiesRepo repository.PropertiesRepository, limits *LimitChecker, logger *zap.Logger) PropertyOwnerService {
	return &propertyOwnerService{
		identity:       identity,
		ownersRepo:     ownersRepo,
		propertiesRepo: propertiesRepo,
		limits:         limits,
		logger:         logger,
	}
}

// AddOwnerRequest 添加业主请求
type AddOwnerRequest struct {
	AgencyID   string
	PropertyID string

	Phone       string // 原始电话，必填
	FirstName   *string
	LastName    *string
	MiddleName  *string
	Email       *string
	ExtraPhones []string
	Notes       *string

	Role   string  // 枚举成员；缺省 primary
	UserID *string // 业主本人是注册用户时关联
}

// AddOwner 添加业主
func (s *propertyOwnerService) AddOwner(ctx context.Context, req AddOwnerRequest) (*repository.OwnerView, error) {
	if req.AgencyID == "" || req.PropertyID == "" {
		return nil, domain.InvalidArgumentf("agency_id and property_id are required")
	}

	role := domain.OwnerRole(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.OwnerRolePrimary
	}
	if !role.Valid() {
		v := domain.NewValidationError()
		v.Add("role", "is not a valid owner role")
		return nil, v
	}

	// 1. 房产必须属于本租户
	if _, err := s.propertiesRepo.GetProperty(ctx, req.AgencyID, req.PropertyID); err != nil {
		return nil, err
	}

	// 2. 套餐限额
	if err := s.limits.EnsureOwnerQuota(ctx, req.AgencyID, req.PropertyID); err != nil {
		return nil, err
	}

	// 3. 电话即身份：Person+Contact 解析
	resolved, err := s.identity.ResolveContact(ctx, ResolveContactRequest{
		AgencyID:    req.AgencyID,
		Phone:       req.Phone,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		MiddleName:  req.MiddleName,
		Email:       req.Email,
		ExtraPhones: req.ExtraPhones,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, err
	}

	// 4. 角色记录
	owner := &domain.PropertyOwner{
		PropertyID: req.PropertyID,
		AgencyID:   req.AgencyID,
		ContactID:  resolved.Contact.ContactID,
		Role:       role,
	}
	if req.UserID != nil {
		owner.UserID = *req.UserID
	}
	if req.Notes != nil {
		owner.Notes = *req.Notes
	}

	ownerID, err := s.ownersRepo.CreateOwner(ctx, req.AgencyID, owner)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Property owner added",
		zap.String("agency_id", req.AgencyID),
		zap.String("property_id", req.PropertyID),
		zap.String("owner_id", ownerID),
		zap.String("contact_id", resolved.Contact.ContactID),
		zap.String("role", string(role)),
	)

	return s.ownersRepo.GetOwner(ctx, req.AgencyID, ownerID)
}

// ListOwners 某房产的业主
func (s *propertyOwnerService) ListOwners(ctx context.Context, tenantID, propertyID string, includeDeleted bool) ([]*repository.OwnerView, error) {
	if tenantID == "" || propertyID == "" {
		return nil, domain.InvalidArgumentf("agency_id and property_id are required")
	}
	return s.ownersRepo.ListOwners(ctx, tenantID, propertyID, includeDeleted)
}

// GetOwner 获取单条业主记录
func (s *propertyOwnerService) GetOwner(ctx context.Context, tenantID, ownerID string) (*repository.OwnerView, error) {
	if tenantID == "" || ownerID == "" {
		return nil, domain.InvalidArgumentf("agency_id and owner_id are required")
	}
	return s.ownersRepo.GetOwner(ctx, tenantID, ownerID)
}

// DeleteOwner 软删除业主记录
func (s *propertyOwnerService) DeleteOwner(ctx context.Context, tenantID, ownerID string) error {
	if tenantID == "" || ownerID == "" {
		return domain.InvalidArgumentf("agency_id and owner_id are required")
	}
	if err := s.ownersRepo.SoftDeleteOwner(ctx, tenantID, ownerID); err != nil {
		return err
	}
	s.logger.Info("Property owner soft deleted",
		zap.String("agency_id", tenantID),
		zap.String("owner_id", ownerID),
	)
	return nil
}
