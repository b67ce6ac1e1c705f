package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rubyhat/cloudsquares-api/internal/domain"
	"github.com/rubyhat/cloudsquares-api/internal/repository"
)

// CustomerService 客户服务接口。
// 创建走 IdentityService.ResolveCustomer；这里只有读取/更新/删除。
type CustomerService interface {
	// GetCustomer 获取单个客户
	GetCustomer(ctx context.Context, tenantID, customerID string) (*repository.CustomerView, error)

	// ListCustomers 列表（过滤/分页）
	ListCustomers(ctx context.Context, req ListCustomersRequest) (*ListCustomersResponse, error)

	// UpdateCustomer 更新可编辑字段
	UpdateCustomer(ctx context.Context, req UpdateCustomerRequest) (*repository.CustomerView, error)

	// DeleteCustomer 软删除
	DeleteCustomer(ctx context.Context, tenantID, customerID string) error
}

type customerService struct {
	customersRepo repository.CustomersRepository
	logger        *zap.Logger
}

// NewCustomerService 创建 CustomerService 实例
func NewCustomerService(customersRepo repository.CustomersRepository, logger *zap.Logger) CustomerService {
	return &customerService{
		customersRepo: customersRepo,
		logger:        logger,
	}
}

// ListCustomersRequest 客户列表请求
type ListCustomersRequest struct {
	AgencyID       string
	ServiceType    string // 枚举成员或空
	Search         string
	IncludeDeleted bool
	Page           int
	Size           int
}

// ListCustomersResponse 客户列表响应
type ListCustomersResponse struct {
	Customers []*repository.CustomerView `json:"customers"`
	Total     int                        `json:"total"`
	Page      int                        `json:"page"`
	Size      int                        `json:"size"`
}

// UpdateCustomerRequest 客户更新请求（nil = 该键未提供）
type UpdateCustomerRequest struct {
	AgencyID   string
	CustomerID string

	ServiceType *string
	UserID      *string
	Notes       *string
}

// GetCustomer 获取单个客户
func (s *customerService) GetCustomer(ctx context.Context, tenantID, customerID string) (*repository.CustomerView, error) {
	if tenantID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}
	return s.customersRepo.GetCustomer(ctx, tenantID, customerID)
}

// ListCustomers 客户列表
func (s *customerService) ListCustomers(ctx context.Context, req ListCustomersRequest) (*ListCustomersResponse, error) {
	if req.AgencyID == "" {
		return nil, domain.InvalidArgumentf("agency_id is required")
	}

	if req.ServiceType != "" && !domain.ServiceType(req.ServiceType).Valid() {
		v := domain.NewValidationError()
		v.Add("service_type", "is not a valid service type")
		return nil, v
	}

	page, size := normalizePage(req.Page, req.Size)

	customers, total, err := s.customersRepo.ListCustomers(ctx, req.AgencyID, repository.CustomerFilters{
		ServiceType:    req.ServiceType,
		Search:         strings.TrimSpace(req.Search),
		IncludeDeleted: req.IncludeDeleted,
	}, page, size)
	if err != nil {
		return nil, err
	}

	return &ListCustomersResponse{
		Customers: customers,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// UpdateCustomer 更新客户
func (s *customerService) UpdateCustomer(ctx context.Context, req UpdateCustomerRequest) (*repository.CustomerView, error) {
	if req.AgencyID == "" || req.CustomerID == "" {
		return nil, domain.InvalidArgumentf("agency_id and customer_id are required")
	}

	patch := domain.CustomerPatch{
		UserID: req.UserID,
		Notes:  req.Notes,
	}
	if req.ServiceType != nil {
		st := domain.ServiceType(strings.TrimSpace(*req.ServiceType))
		if !st.Valid() {
			v := domain.NewValidationError()
			v.Add("service_type", "is not a valid service type")
			return nil, v
		}
		patch.ServiceType = &st
	}

	if err := s.customersRepo.UpdateCustomer(ctx, req.AgencyID, req.CustomerID, patch); err != nil {
		return nil, err
	}
	return s.customersRepo.GetCustomer(ctx, req.AgencyID, req.CustomerID)
}

// DeleteCustomer 软删除客户
func (s *customerService) DeleteCustomer(ctx context.Context, tenantID, customerID string) error {
	if tenantID == "" || customerID == "" {
		return domain.InvalidArgumentf("agency_id and customer_id are required")
	}
	if err := s.customersRepo.SoftDeleteCustomer(ctx, tenantID, customerID); err != nil {
		return err
	}
	s.logger.Info("Customer soft deleted",
		zap.String("agency_id", tenantID),
		zap.String("customer_id", customerID),
	)
	return nil
}
